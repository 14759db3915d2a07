package version

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed version.json
var raw []byte

type Info struct {
	Version string `json:"version"`
}

// Load decodes the embedded version manifest. The binary carries its own
// version, so startup does not depend on the working directory.
func Load() Info {
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Printf("warning: could not parse embedded version.json: %v", err)
		return Info{Version: "0.0.0"}
	}
	return info
}
