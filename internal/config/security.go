package config

// AuthenticationConfig configures bearer token validation.
type AuthenticationConfig struct {
	JWT JWTConfig `yaml:"jwt" json:"jwt"`
}

// JWTConfig configures JWT validation against an issuer's key set.
type JWTConfig struct {
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	Issuer          string   `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Audience        []string `yaml:"audience,omitempty" json:"audience,omitempty"`
	JWKSURL         string   `yaml:"jwksUrl,omitempty" json:"jwksUrl,omitempty"`
	JWKSFile        string   `yaml:"jwksFile,omitempty" json:"jwksFile,omitempty"`
	RefreshInterval Duration `yaml:"refreshInterval,omitempty" json:"refreshInterval,omitempty"`
	ClockSkew       Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
	RoleClaim       string   `yaml:"roleClaim,omitempty" json:"roleClaim,omitempty"`
	Algorithms      []string `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`
}

// Authorization access levels.
const (
	AccessPublic        = "public"
	AccessAuthenticated = "authenticated"
	AccessRoles         = "roles"
)

// AuthorizationConfig holds the access rules.
type AuthorizationConfig struct {
	Rules []AuthorizationRule `yaml:"rules" json:"rules"`
}

// AuthorizationRule maps a path pattern and optional methods to an access level.
type AuthorizationRule struct {
	Path    string   `yaml:"path" json:"path"`
	Methods []string `yaml:"methods,omitempty" json:"methods,omitempty"`
	Access  string   `yaml:"access" json:"access"`
	Roles   []string `yaml:"roles,omitempty" json:"roles,omitempty"`
}
