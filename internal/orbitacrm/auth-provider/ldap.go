package authprovider

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/orbita-it/orbitacrm/internal/orbitacrm/config"
)

type LdapProvider struct {
	serverAdr *url.URL
	bindDN    string
	bindPwd   string

	baseDN       string
	objectClass  string
	userNameAttr string
	loginFilter  string
}

func InitLDAP(cfg *config.Config) (*LdapProvider, error) {
	if cfg.LdapURL == nil {
		return nil, fmt.Errorf("ldap url is not configured")
	}

	lp := &LdapProvider{
		serverAdr:    cfg.LdapURL,
		bindDN:       cfg.LdapBindDN,
		bindPwd:      cfg.LdapBindPassword,
		baseDN:       cfg.LdapBaseDN,
		objectClass:  cfg.LdapUserObjectClass,
		userNameAttr: cfg.LdapUserNameAttribute,
		loginFilter:  cfg.LdapUserLoginFilter,
	}
	return lp, lp.check()
}

func (lp *LdapProvider) check() error {
	s, err := lp.Connect()
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

func (lp *LdapProvider) Connect() (Session, error) {
	l, err := ldap.DialURL(lp.serverAdr.String())
	if err != nil {
		return nil, err
	}

	if err := l.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
		slog.Debug("Start LDAP TLS", "err", err)
	}

	if err := l.Bind(lp.bindDN, lp.bindPwd); err != nil {
		l.Close()
		return nil, err
	}

	return &ldapSession{conn: l, lp: lp}, nil
}

type ldapSession struct {
	conn *ldap.Conn
	lp   *LdapProvider
}

func (s *ldapSession) FindUser(username string) (*DirectoryEntry, error) {
	searchRequest := ldap.NewSearchRequest(
		s.lp.baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		buildUserFilter(s.lp.objectClass, s.lp.userNameAttr, username, s.lp.loginFilter),
		nil,
		nil,
	)

	sr, err := s.conn.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	if len(sr.Entries) == 0 {
		return nil, nil
	}

	entry := sr.Entries[0]
	attributes := make(map[string][]string, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		attributes[attr.Name] = attr.Values
	}

	return NewDirectoryEntry(entry.DN, attributes), nil
}

func (s *ldapSession) BindUser(dn string, password string) error {
	return s.conn.Bind(dn, password)
}

func (s *ldapSession) Close() {
	s.conn.Close()
}

// buildUserFilter собирает конъюнктивный фильтр поиска пользователя:
// objectClass, атрибут имени входа и необязательный настроенный фильтр.
func buildUserFilter(objectClass string, userNameAttr string, username string, loginFilter string) string {
	var filter strings.Builder
	filter.WriteString("(&")
	filter.WriteString(fmt.Sprintf("(objectClass=%s)", ldap.EscapeFilter(objectClass)))
	filter.WriteString(fmt.Sprintf("(%s=%s)", userNameAttr, ldap.EscapeFilter(username)))
	if loginFilter != "" {
		filter.WriteString(normalizeLoginFilter(loginFilter))
	}
	filter.WriteString(")")
	return filter.String()
}

// normalizeLoginFilter оборачивает настроенный фрагмент фильтра в скобки,
// если администратор указал его без них.
func normalizeLoginFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return ""
	}
	if !strings.HasPrefix(filter, "(") {
		filter = "(" + filter + ")"
	}
	return filter
}
