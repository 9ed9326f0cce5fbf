package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainConfig prefixes the fingerprint hash. The version suffix changes
// whenever the hashed form does.
const DomainConfig = "exhibit/config/v1"

// Fingerprint identifies the behaviour a configuration produces: two
// configurations with the same fingerprint run identical traces on the
// same inputs. The runtime knobs that do not reach the scheduler (DB and
// LogLevel) are left out.
//
// Format: hex(SHA256(DomainConfig + 0x00 + json(cfg)))
func (c *Config) Fingerprint() (string, error) {
	hashed := *c
	hashed.DB = ""
	hashed.LogLevel = ""
	data, err := json.Marshal(&hashed)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainConfig))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
