// Package catalog defines the closed set of feature permissions known to the
// application, grouped by console module.
//
// The catalog is the single source of truth for authorization and for the UI:
// the access guard treats it as the universe of valid permission ids, the
// navigation menu is derived from it, and the administrative permission matrix
// renders it. Permissions are not runtime-extensible.
package catalog

// PermAll is the sentinel permission meaning "every permission". A profile
// carrying it is treated exactly like the admin role short-circuit: the
// effective set is never materialized, so permissions added to the catalog
// later are covered automatically.
const PermAll = "all"

// Permission ids, one per guarded console feature.
const (
	// PermDashboard allows viewing the main dashboard.
	PermDashboard = "dashboard"

	// PermCadastroToners allows registering and editing toner records.
	PermCadastroToners = "cadastro-toners"
	// PermConsultaToners allows viewing the toner stock listing.
	PermConsultaToners = "consulta-toners"

	// PermAuditoriaAgenda allows scheduling and editing audits.
	PermAuditoriaAgenda = "auditoria-agenda"
	// PermAuditoriaRelatorios allows viewing audit reports.
	PermAuditoriaRelatorios = "auditoria-relatorios"

	// PermGarantiaRegistro allows registering warranty claims.
	PermGarantiaRegistro = "garantia-registro"
	// PermGarantiaConsulta allows viewing warranty claims.
	PermGarantiaConsulta = "garantia-consulta"

	// PermNCRegistro allows registering non-conformities.
	PermNCRegistro = "nc-registro"
	// PermNCAnalise allows analysing and closing non-conformities.
	PermNCAnalise = "nc-analise"

	// PermAdminUsuarios allows managing user accounts.
	PermAdminUsuarios = "admin-usuarios"
	// PermAdminPerfis allows managing access profiles (custom roles).
	PermAdminPerfis = "admin-perfis"
)

// Entry describes one catalog permission: the console module it belongs to,
// its id, the label shown in menus and in the permission matrix, and the route
// it guards.
type Entry struct {
	Module  string
	ID      string
	Display string
	Path    string
}

// Module display names used for grouping entries.
const (
	ModuleDashboard = "Dashboard"
	ModuleToners    = "Toners"
	ModuleAuditoria = "Auditorias"
	ModuleGarantia  = "Garantias"
	ModuleNC        = "Não Conformidades"
	ModuleAdmin     = "Administração"
)

// entries is the closed permission universe, in display order.
var entries = []Entry{
	{Module: ModuleDashboard, ID: PermDashboard, Display: "Painel", Path: "/dashboard"},

	{Module: ModuleToners, ID: PermConsultaToners, Display: "Consulta de Toners", Path: "/toner"},
	{Module: ModuleToners, ID: PermCadastroToners, Display: "Cadastro de Toners", Path: "/toner/new"},

	{Module: ModuleAuditoria, ID: PermAuditoriaRelatorios, Display: "Relatórios de Auditoria", Path: "/auditoria"},
	{Module: ModuleAuditoria, ID: PermAuditoriaAgenda, Display: "Agenda de Auditorias", Path: "/auditoria/new"},

	{Module: ModuleGarantia, ID: PermGarantiaConsulta, Display: "Consulta de Garantias", Path: "/garantia"},
	{Module: ModuleGarantia, ID: PermGarantiaRegistro, Display: "Registro de Garantias", Path: "/garantia/new"},

	{Module: ModuleNC, ID: PermNCRegistro, Display: "Registro de NC", Path: "/nc"},
	{Module: ModuleNC, ID: PermNCAnalise, Display: "Análise de NC", Path: "/nc/analise"},

	{Module: ModuleAdmin, ID: PermAdminUsuarios, Display: "Usuários", Path: "/admin/user"},
	{Module: ModuleAdmin, ID: PermAdminPerfis, Display: "Perfis de Acesso", Path: "/admin/profile"},
}

// index is built once for membership checks.
var index = func() map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.ID] = e
	}

	return m
}()

// Entries returns the full catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	return out
}

// IDs returns every permission id in the catalog.
func IDs() []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}

	return out
}

// Known reports whether the given id is part of the catalog. The sentinel
// PermAll is not a catalog entry; it is only meaningful inside a stored
// permission list.
func Known(id string) bool {
	_, ok := index[id]
	return ok
}

// Lookup returns the catalog entry for the given id.
func Lookup(id string) (Entry, bool) {
	e, ok := index[id]
	return e, ok
}

// Group represents a catalog module with its entries, for rendering the
// permission matrix and the navigation menu.
type Group struct {
	Module  string
	Entries []Entry
}

// Groups returns the catalog grouped by module, preserving display order.
func Groups() []Group {
	var (
		out   []Group
		byMod = map[string]int{}
	)

	for _, e := range entries {
		i, ok := byMod[e.Module]
		if !ok {
			out = append(out, Group{Module: e.Module})
			i = len(out) - 1
			byMod[e.Module] = i
		}

		out[i].Entries = append(out[i].Entries, e)
	}

	return out
}
