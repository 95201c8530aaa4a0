// Package user provides handlers for managing user accounts (CRUD) in the
// admin area, including the per-user permission matrix.
package user

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/dashboard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/navigation"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// Service provides CRUD operations for user accounts.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	registry  *registry.Registry
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.registry = registry.New(db)
	s.validator = validator.New()

	perm := func() fiber.Handler {
		return guard.RequirePermission(sessions, catalog.PermAdminUsuarios)
	}

	app.Get(Path, perm(), s.List)
	app.Get(Path+"/new", perm(), s.New)
	app.Post(Path, perm(), s.Create)
	app.Get(Path+"/:id/edit", perm(), s.Edit)
	app.Post(Path+"/:id", perm(), s.Update)
	app.Post(Path+"/:id/permissions", perm(), s.UpdatePermissions)
	app.Post(Path+"/:id/password", perm(), s.ResetPassword)
	app.Post(Path+"/:id/delete", perm(), s.Delete)
}

func (s *Service) nav(pageTitle string, extra ...navigation.BreadcrumbItem) *navigation.Context {
	nav := navigation.NewContext(pageTitle, "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Administração", "#", false).
		AddBreadcrumb("Usuários", Path, len(extra) == 0)

	for _, item := range extra {
		nav.AddBreadcrumb(item.Title, item.URL, item.Active)
	}

	return nav
}

// List shows users with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	nav := s.nav("Usuários")

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	var (
		users      []models.User
		totalCount int64
		tx         = s.db.Model(&models.User{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where("email LIKE ? OR name LIKE ?", like, like)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Falha ao carregar usuários",
			"Search":     search,
		}, handler.BaseLayout)
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize
	if err := tx.Order("email ASC").Limit(pageSize).Offset(offset).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Falha ao carregar usuários",
			"Search":     search,
		}, handler.BaseLayout)
	}

	var currentUserID string

	store := guard.StoreFromCtx(c)
	if ident := store.CurrentIdentity(); ident != nil {
		currentUserID = ident.ID
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    nav,
		"Menu":          navigation.Menu(store, Path),
		"Users":         users,
		"CurrentUserID": currentUserID,
		"Search":        search,
		"Page":          page,
		"PageSize":      pageSize,
		"TotalItems":    totalCount,
		"TotalPages":    totalPages,
		"HasPrev":       page > 1,
		"HasNext":       page < totalPages,
		"PrevPage":      page - 1,
		"NextPage":      page + 1,
	}, handler.BaseLayout)
}

// New shows the creation form with the role list and the permission matrix.
func (s *Service) New(c *fiber.Ctx) error {
	nav := s.nav("Novo Usuário", navigation.BreadcrumbItem{Title: "Novo", URL: Path + "/new", Active: true})

	roles, err := s.registry.Roles()
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": nav,
			"Error":      "Falha ao carregar perfis",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":   nav,
		"Menu":         navigation.Menu(guard.StoreFromCtx(c), Path),
		"User":         models.User{Active: true, Role: registry.RoleViewer},
		"IsCreate":     true,
		"Roles":        roles,
		"Catalog":      catalog.Groups(),
		"GrantedPerms": map[string]bool{},
	}, handler.BaseLayout)
}

// Create creates a new user account through the session store.
func (s *Service) Create(c *fiber.Ctx) error {
	var in struct {
		Name        string   `form:"name"        validate:"required,max=150"`
		Email       string   `form:"email"       validate:"required,email,max=255"`
		Role        string   `form:"role"        validate:"required"`
		Password    string   `form:"password"    validate:"required,min=8"`
		Permissions []string `form:"permissions"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Usuários"),
			"Error":      "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Usuários"),
			"Error":      "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	if ok, err := s.registry.Exists(in.Role); err != nil || !ok {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Usuários"),
			"Error":      "Perfil desconhecido",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)
	if store == nil {
		return c.Redirect(guard.LoginPath)
	}

	_, err := store.AddUser(c.Context(), authstore.NewUser{
		Name:        in.Name,
		Email:       in.Email,
		Role:        in.Role,
		Password:    in.Password,
		Permissions: filterKnown(in.Permissions),
	})
	if err != nil {
		log.Error().Err(err).Str("email", in.Email).Msg("failed to create user")

		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Usuários"),
			"Error":      createErrorMessage(err),
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a user, including the permission matrix.
func (s *Service) Edit(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Redirect(Path)
	}

	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao carregar usuário",
		}, handler.BaseLayout)
	}

	roles, err := s.registry.Roles()
	if err != nil {
		log.Error().Err(err).Msg("failed to load roles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao carregar perfis",
		}, handler.BaseLayout)
	}

	granted := make(map[string]bool, len(user.Permissions))
	for _, perm := range user.Permissions {
		granted[perm] = true
	}

	nav := s.nav("Editar Usuário", navigation.BreadcrumbItem{Title: "Editar", URL: Path + "/" + id + "/edit", Active: true})

	return c.Render(TemplateForm, fiber.Map{
		"Navigation":   nav,
		"Menu":         navigation.Menu(guard.StoreFromCtx(c), Path),
		"User":         user,
		"IsCreate":     false,
		"Roles":        roles,
		"Catalog":      catalog.Groups(),
		"GrantedPerms": granted,
	}, handler.BaseLayout)
}

// Update applies name/email/role changes through the session store.
func (s *Service) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Redirect(Path)
	}

	var in struct {
		Name  string `form:"name"  validate:"required,max=150"`
		Email string `form:"email" validate:"required,email,max=255"`
		Role  string `form:"role"  validate:"required"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	if ok, err := s.registry.Exists(in.Role); err != nil || !ok {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Perfil desconhecido",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)
	if store == nil {
		return c.Redirect(guard.LoginPath)
	}

	err := store.UpdateUser(c.Context(), id, authstore.UserPatch{
		Name:  &in.Name,
		Email: &in.Email,
		Role:  &in.Role,
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to update user")

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao atualizar usuário",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// UpdatePermissions replaces the explicit permission list of a user from the
// permission matrix form.
func (s *Service) UpdatePermissions(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Redirect(Path)
	}

	var in struct {
		Permissions []string `form:"permissions"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)
	if store == nil {
		return c.Redirect(guard.LoginPath)
	}

	if err := store.UpdateUserPermissions(c.Context(), id, filterKnown(in.Permissions)); err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to update permissions")

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao atualizar permissões",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path + "/" + id + "/edit")
}

// ResetPassword sets a new password for a local account.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Redirect(Path)
	}

	var in struct {
		Password string `form:"password" validate:"required,min=8"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "A senha deve ter ao menos 8 caracteres",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)
	if store == nil {
		return c.Redirect(guard.LoginPath)
	}

	if err := store.UpdateUserPassword(c.Context(), id, in.Password); err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to reset password")

		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao redefinir senha",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path + "/" + id + "/edit")
}

// Delete removes a user account. The seed administrator is refused by the
// provider; deleting your own account ends your session.
func (s *Service) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Redirect(Path)
	}

	store := guard.StoreFromCtx(c)
	if store == nil {
		return c.Redirect(guard.LoginPath)
	}

	if err := store.DeleteUser(c.Context(), id); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("failed to delete user")

		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Usuários"),
			"Error":      deleteErrorMessage(err),
		}, handler.BaseLayout)
	}

	// deleting yourself ends the session
	if !store.LoggedIn() {
		return c.Redirect("/logout")
	}

	return c.Redirect(Path)
}

// filterKnown drops permission ids that are not part of the catalog. The
// matrix form can only submit catalog ids, so anything else is a forged
// request.
func filterKnown(perms []string) []string {
	out := make([]string, 0, len(perms))

	for _, perm := range perms {
		if catalog.Known(perm) {
			out = append(out, perm)
		}
	}

	return out
}

func createErrorMessage(err error) string {
	if errors.Is(err, identity.ErrEmailExists) {
		return "Já existe um usuário com este e-mail"
	}

	return "Falha ao criar usuário"
}

func deleteErrorMessage(err error) string {
	if errors.Is(err, identity.ErrSeedAdminImmutable) {
		return "O administrador inicial não pode ser excluído"
	}

	return "Falha ao excluir usuário"
}
