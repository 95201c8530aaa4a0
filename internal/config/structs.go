package config

import (
	"time"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Seed holds the credentials used to create the initial administrator account
// when the user table is empty. The password is only used once; afterwards it
// should be changed through the console.
type Seed struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// Auth groups the authentication related settings.
type Auth struct {
	// LDAP holds the optional LDAP credential verification settings.
	LDAP identity.LDAPConfig
	// OIDC holds the optional OpenID Connect login settings.
	OIDC identity.OIDCConfig
	// Seed holds the initial administrator account settings.
	Seed Seed
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Auth      Auth
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool    // enable static file browsing (for development purposes only)
	DisableRecover bool    // serve without the recover middleware (panics crash the process)
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	Session        Session // session settings
}
