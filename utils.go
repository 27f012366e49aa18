package crtv

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseStorageURI splits a blob uri (s3://bucket/key, ipfs://cid/path) into
// scheme, host and key.
func ParseStorageURI(raw string) (string, string, string, error) {
	uri, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid uri")
	}

	switch uri.Scheme {
	case "s3", "ipfs", "http", "https":
	default:
		return "", "", "", fmt.Errorf("unsupported uri scheme")
	}

	if uri.Host == "" {
		return "", "", "", fmt.Errorf("invalid uri")
	}

	key := strings.TrimPrefix(uri.Path, "/")

	return uri.Scheme, uri.Host, key, nil
}

func ComposeStorageURI(bucket, key string) string {
	u := &url.URL{
		Scheme: "s3",
		Host:   bucket,
		Path:   key,
	}
	return u.String()
}

// IsAddress reports whether s is a 0x-prefixed 20 byte hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// NormalizeAddress returns the EIP-55 form of an address.
func NormalizeAddress(s string) string {
	if !IsAddress(s) {
		return s
	}
	return common.HexToAddress(s).Hex()
}

func SameAddress(a, b string) bool {
	if !IsAddress(a) || !IsAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// ToContent converts an entity into the generic document content.
func ToContent(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var content map[string]any
	err = json.Unmarshal(b, &content)
	if err != nil {
		return nil, err
	}
	return content, nil
}

// FromContent decodes generic document content into an entity.
func FromContent(content map[string]any, v any) error {
	b, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (p TokenProperty) MarshalJSON() ([]byte, error) {
	switch {
	case p.Rich != nil:
		return json.Marshal(p.Rich)
	case p.Array != nil:
		return json.Marshal(p.Array)
	case p.Simple != nil:
		return json.Marshal(*p.Simple)
	default:
		return []byte(`""`), nil
	}
}

func (p *TokenProperty) UnmarshalJSON(b []byte) error {
	var simple string
	if err := json.Unmarshal(b, &simple); err == nil {
		p.Simple = &simple
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return fmt.Errorf("unsupported property shape")
	}

	if raw, ok := probe["value"]; ok && len(raw) > 0 && raw[0] == '[' {
		var array ArrayProperty
		if err := json.Unmarshal(b, &array); err != nil {
			return err
		}
		p.Array = &array
		return nil
	}

	var rich RichProperty
	if err := json.Unmarshal(b, &rich); err != nil {
		return err
	}
	p.Rich = &rich
	return nil
}

func SimpleValue(s string) TokenProperty {
	return TokenProperty{Simple: &s}
}

// String flattens a property into the value stored as a simple property row.
func (p TokenProperty) String() string {
	switch {
	case p.Simple != nil:
		return *p.Simple
	case p.Rich != nil:
		return p.Rich.Value
	case p.Array != nil:
		b, _ := json.Marshal(p.Array.Value)
		return string(b)
	default:
		return ""
	}
}
