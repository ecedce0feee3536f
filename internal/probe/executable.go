package probe

import (
	"context"
	"encoding/json"

	"github.com/drivedex/drivedex/internal/logger"
)

// ExecutableProber extracts product name and version from executables via
// exiftool. Only those two fields are kept; everything else an executable
// header carries goes into the raw tag snapshot instead.
type ExecutableProber struct {
	available bool
}

func NewExecutableProber() *ExecutableProber {
	p := &ExecutableProber{available: toolAvailable("exiftool")}
	if !p.available {
		logger.Warnf("exiftool not found on PATH, executable metadata will be empty")
	}
	return p
}

func (p *ExecutableProber) Probe(ctx context.Context, path string) (Fields, error) {
	if !p.available {
		return nil, nil
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}

	out, err := runTool(ctx, defaultTimeout, "exiftool",
		"-j", "-ProductName", "-ProductVersion", path)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		ProductName    string `json:"ProductName"`
		ProductVersion string `json:"ProductVersion"`
	}
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return nil, nil
	}

	fields := Fields{}
	if entries[0].ProductName != "" {
		fields["product_name"] = entries[0].ProductName
	}
	if entries[0].ProductVersion != "" {
		fields["product_version"] = entries[0].ProductVersion
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}
