// Package model holds the configuration and persistence shapes shared across
// vc-attest's packages.
package model

import "time"

// Log holds the log configuration.
type Log struct {
	FolderPath string `envconfig:"LOG_FOLDER_PATH"`
}

// OTEL holds the tracing configuration.
type OTEL struct {
	Enabled bool   `envconfig:"TRACING_ENABLED" default:"false"`
	Addr    string `envconfig:"TRACING_ADDR"`
	Timeout int64  `envconfig:"TRACING_TIMEOUT_SECONDS" default:"10"`
}

// Common holds configuration shared by every package in the service.
type Common struct {
	Production bool `envconfig:"PRODUCTION" default:"false"`
	Log        Log
	Tracing    OTEL
}

// Store holds the device store configuration. Presence of PostgresURL
// selects the relational backend; its absence selects the file backend.
type Store struct {
	PostgresURL   string `envconfig:"POSTGRES_URL"`
	FilePath      string `envconfig:"DEVICE_STORE_PATH" default:"data/devices.json"`
	IdentityCacheTTLSeconds int `envconfig:"IDENTITY_CACHE_TTL_SECONDS" default:"60"`
}

// Broker holds the third-party credential broker ("Primus") configuration.
type Broker struct {
	AppID          string        `envconfig:"PRIMUS_APP_ID"`
	AppSecret      string        `envconfig:"PRIMUS_APP_SECRET"`
	RequestTimeout time.Duration `envconfig:"PRIMUS_REQUEST_TIMEOUT" default:"30s"`
}

// Attest holds the App Attest verifier configuration.
type Attest struct {
	// AcceptLegacyNonceVariant accepts SHA-256(authData ‖ challenge) in
	// addition to the spec-mandated SHA-256(authData ‖ SHA-256(challenge)).
	// Defaults to true to match the currently documented behaviour; set to
	// false for the conservative spec-only mode.
	AcceptLegacyNonceVariant bool `envconfig:"ATTEST_ACCEPT_LEGACY_NONCE" default:"true"`
	ProductionAAGUID         bool `envconfig:"ATTEST_PRODUCTION_AAGUID" default:"true"`
}

// APIServer holds the HTTP server configuration.
type APIServer struct {
	Addr string `envconfig:"API_ADDR" default:":8080"`
}

// Cfg is the root configuration object for the service.
type Cfg struct {
	Common    Common
	APIServer APIServer
	Store     Store
	Broker    Broker
	Attest    Attest
}

// DeviceRecord is the authoritative row per hardware key, keyed by
// credentialId.
type DeviceRecord struct {
	CredentialID string `json:"credentialId" gorm:"column:key_id;primaryKey"`
	PublicKeyDER []byte `json:"publicKeyDer" gorm:"column:public_key_der"`
	Counter      uint32 `json:"counter" gorm:"column:counter"`
	EVMAddress   string `json:"evmAddress" gorm:"column:evm_address"`
	PassportHash string `json:"passportHash" gorm:"column:passport_hash"`

	// Ambient auditability, never returned over the wire.
	CreatedAt     time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"-" gorm:"column:updated_at"`
	SchemaVersion int16     `json:"-" gorm:"column:schema_version;default:1"`
}

// TableName pins the gorm table name independent of the struct name.
func (DeviceRecord) TableName() string {
	return "devices"
}

// Clone returns a shallow copy safe to hand to a caller without aliasing the
// stored record.
func (d *DeviceRecord) Clone() *DeviceRecord {
	if d == nil {
		return nil
	}
	cp := *d
	cp.PublicKeyDER = append([]byte(nil), d.PublicKeyDER...)
	return &cp
}
