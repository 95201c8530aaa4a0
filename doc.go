// Package main provides the entry point for GoSGQ-Admin, a web-based
// quality-management administrative console. The application serves a Fiber
// web interface for registering toners, audits, warranties and
// non-conformities, and gates every screen through a role/permission based
// authorization core backed by gorm for persistence.
package main
