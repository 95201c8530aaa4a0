package identity

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
)

// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
var ErrLDAPDisabled = errors.New("ldap authentication is disabled")

// LDAPConfig holds LDAP/Active Directory configuration for credential verification.
type LDAPConfig struct {
	// Enabled indicates if LDAP authentication is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS) on port 636.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name to bind with for performing searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the LDAP filter for finding users (e.g., "(mail={email})").
	// The {email} placeholder is replaced with the login address.
	UserFilter string
}

// LDAPProvider verifies credentials against an LDAP directory. Profile
// records still live in the local database, so every other Provider
// operation is delegated to the embedded LocalProvider.
type LDAPProvider struct {
	*LocalProvider
	config *LDAPConfig
}

// NewLDAPProvider creates a new LDAP identity provider.
func NewLDAPProvider(config *LDAPConfig, db *gorm.DB) (*LDAPProvider, error) {
	if !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	if config.UserFilter == "" {
		config.UserFilter = "(mail={email})"
	}

	return &LDAPProvider{
		LocalProvider: NewLocalProvider(db),
		config:        config,
	}, nil
}

// VerifyCredential binds against the directory with the user's credentials
// and resolves the matching local record by email.
func (p *LDAPProvider) VerifyCredential(ctx context.Context, email, secret string) (*Credential, error) {
	conn, err := p.connect()
	if err != nil {
		return nil, fmt.Errorf("ldap connect failed: %w", err)
	}
	defer conn.Close()

	// bind with the service account for the user search
	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return nil, fmt.Errorf("ldap service bind failed: %w", err)
		}
	}

	filter := strings.ReplaceAll(p.config.UserFilter, "{email}", ldap.EscapeFilter(email))

	result, err := conn.Search(ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		[]string{"dn"},
		nil,
	))
	if err != nil {
		return nil, fmt.Errorf("ldap search failed: %w", err)
	}

	if len(result.Entries) == 0 {
		return nil, ErrInvalidCredentials
	}

	if len(result.Entries) > 1 {
		log.Warn().Str("filter", filter).Int("entries", len(result.Entries)).
			Msg("ldap filter matched multiple users")

		return nil, ErrInvalidCredentials
	}

	// bind as the user to verify the password
	if err := conn.Bind(result.Entries[0].DN, secret); err != nil {
		return nil, ErrInvalidCredentials
	}

	// directory verified the credential; the profile record must exist locally
	var user models.User

	err = p.db.WithContext(ctx).Where(whereEmail, email).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	return &Credential{
		ID:         user.ID,
		Email:      user.Email,
		TOTPSecret: user.TOTPSecret,
	}, nil
}

// connect opens the LDAP connection according to the TLS settings.
func (p *LDAPProvider) connect() (*ldap.Conn, error) {
	address := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	if p.config.UseSSL {
		return ldap.DialURL(
			"ldaps://"+address,
			ldap.DialWithTLSConfig(&tls.Config{
				ServerName:         p.config.Host,
				InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec
			}),
		)
	}

	conn, err := ldap.DialURL("ldap://" + address)
	if err != nil {
		return nil, err
	}

	if p.config.UseTLS {
		if err := conn.StartTLS(&tls.Config{
			ServerName:         p.config.Host,
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec
		}); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}
