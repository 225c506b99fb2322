package client

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CredentialTypeName is the credential identifier nodes refer to.
const CredentialTypeName = "netSendoApi"

// APIPrefix is appended to the installation URL.
const APIPrefix = "/api/v1"

var validate = validator.New()

// Credentials identify one NetSendo installation and API key.
type Credentials struct {
	// BaseURL is the installation domain without /api/v1, e.g. https://mail.example.com
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl" validate:"required,url"`

	// APIKey is a key generated under NetSendo → API Keys (ns_live_...)
	APIKey string `json:"apiKey" mapstructure:"apiKey" validate:"required"`
}

// Validate checks that both fields are present and the URL parses.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// APIRoot returns the base URL with one trailing slash removed and /api/v1 appended.
func (c Credentials) APIRoot() string {
	return strings.TrimSuffix(c.BaseURL, "/") + APIPrefix
}

// Fingerprint is a short stable identifier for cache and quota namespacing.
// It never contains the key itself.
func (c Credentials) Fingerprint() string {
	sum := sha256.Sum256([]byte(strings.TrimSuffix(c.BaseURL, "/") + "\x00" + c.APIKey))
	return hex.EncodeToString(sum[:6])
}

// CredentialProperty describes one credential form field.
type CredentialProperty struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
	Password    bool   `json:"password,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CredentialType is the declarative description handed to the host.
type CredentialType struct {
	Name             string               `json:"name"`
	DisplayName      string               `json:"displayName"`
	DocumentationURL string               `json:"documentationUrl"`
	Properties       []CredentialProperty `json:"properties"`
	// TestEndpoint is requested with GET to verify a credential.
	TestEndpoint string `json:"testEndpoint"`
}

// DescribeCredentials returns the netSendoApi credential type.
func DescribeCredentials() CredentialType {
	return CredentialType{
		Name:             CredentialTypeName,
		DisplayName:      "NetSendo API",
		DocumentationURL: "https://github.com/NetSendo/NetSendo",
		Properties: []CredentialProperty{
			{
				Name:        "baseUrl",
				DisplayName: "Base URL",
				Type:        "string",
				Placeholder: "https://your-domain.com",
				Description: "Domain of your NetSendo installation (without /api/v1)",
				Required:    true,
			},
			{
				Name:        "apiKey",
				DisplayName: "API Key",
				Type:        "string",
				Password:    true,
				Placeholder: "ns_live_...",
				Description: "API key generated in NetSendo → API Keys",
				Required:    true,
			},
		},
		TestEndpoint: "/lists",
	}
}
