// Package navigation provides utilities for managing navigation state,
// breadcrumbs and the permission-driven sidebar menu.
package navigation

import (
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
)

// BreadcrumbItem represents a single breadcrumb link.
type BreadcrumbItem struct {
	Title  string
	URL    string
	Active bool
}

// Context represents the navigation context for a page.
type Context struct {
	ActiveSection string
	ActivePage    string
	Breadcrumbs   []BreadcrumbItem
	PageTitle     string
}

// NewContext creates a new navigation context.
func NewContext(pageTitle, activeSection, activePage string) *Context {
	return &Context{
		PageTitle:     pageTitle,
		ActiveSection: activeSection,
		ActivePage:    activePage,
		Breadcrumbs:   make([]BreadcrumbItem, 0),
	}
}

// AddBreadcrumb adds a breadcrumb item to the context.
func (c *Context) AddBreadcrumb(title, url string, active bool) *Context {
	c.Breadcrumbs = append(c.Breadcrumbs, BreadcrumbItem{
		Title:  title,
		URL:    url,
		Active: active,
	})

	return c
}

// IsActive checks if the given section and page match the current context.
func (c *Context) IsActive(section, page string) bool {
	return c.ActiveSection == section && c.ActivePage == page
}

// IsSectionActive checks if the given section is active.
func (c *Context) IsSectionActive(section string) bool {
	return c.ActiveSection == section
}

// MenuItem is one sidebar link.
type MenuItem struct {
	Title  string
	URL    string
	Active bool
}

// MenuSection is one sidebar group, named after its console module.
type MenuSection struct {
	Title string
	Items []MenuItem
}

// Menu builds the sidebar for the given session: one item per catalog entry
// the identity may use, grouped by module in catalog order. Sections with no
// visible item are dropped whole. The menu is derived from the same catalog
// the guard enforces, so a link is shown exactly when the target page would
// let the user in.
func Menu(store *authstore.Store, activePath string) []MenuSection {
	var sections []MenuSection

	for _, group := range catalog.Groups() {
		var items []MenuItem

		for _, entry := range group.Entries {
			if !store.HasPermission(entry.ID) {
				continue
			}

			items = append(items, MenuItem{
				Title:  entry.Display,
				URL:    entry.Path,
				Active: entry.Path == activePath,
			})
		}

		if len(items) == 0 {
			continue
		}

		sections = append(sections, MenuSection{Title: group.Module, Items: items})
	}

	return sections
}
