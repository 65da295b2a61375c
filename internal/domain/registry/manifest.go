package registry

import (
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/homescreen/internal/shared/types"
)

const (
	// ManifestPattern matches manifest files relative to the apps directory
	ManifestPattern = "**/*.{yaml,yml,json,toml}"

	// MaxManifestSize bounds a single manifest file
	MaxManifestSize = 64 * 1024

	MaxIDLength    = 128
	MaxLabelLength = 256
)

var (
	ErrMissingID     = errors.New("manifest has no id")
	ErrInvalidID     = errors.New("manifest id contains invalid characters")
	ErrManifestSize  = errors.New("manifest too large")
	ErrUnknownFormat = errors.New("unknown manifest format")
)

// appIDPattern allows reverse-domain style identifiers
var appIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// sanitizer strips all markup from labels
var sanitizer = bluemonday.StrictPolicy()

// manifest is the on-disk shape of an application description
type manifest struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Label     string `json:"label" yaml:"label" toml:"label"`
	Icon      string `json:"icon" yaml:"icon" toml:"icon"`
	Exec      string `json:"exec" yaml:"exec" toml:"exec"`
	Removable *bool  `json:"removable" yaml:"removable" toml:"removable"`
	Badge     int    `json:"badge" yaml:"badge" toml:"badge"`
}

func manifestOf(app types.AppInfo) manifest {
	removable := app.Removable
	return manifest{
		ID:        strings.TrimSpace(app.AppID),
		Label:     app.Label,
		Icon:      app.IconPath,
		Exec:      app.Exec,
		Removable: &removable,
		Badge:     app.Badge,
	}
}

// ParseManifest decodes a manifest according to the file extension of path
// and validates it.
func ParseManifest(path string, data []byte) (types.AppInfo, error) {
	if len(data) > MaxManifestSize {
		return types.AppInfo{}, fmt.Errorf("%s: %w (%d bytes)", path, ErrManifestSize, len(data))
	}

	var mf manifest
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mf)
	case ".json":
		err = sonic.Unmarshal(data, &mf)
	case ".toml":
		err = toml.Unmarshal(data, &mf)
	default:
		return types.AppInfo{}, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return types.AppInfo{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return mf.appInfo(path)
}

func (mf manifest) appInfo(path string) (types.AppInfo, error) {
	appID := strings.TrimSpace(mf.ID)
	if appID == "" {
		return types.AppInfo{}, fmt.Errorf("%s: %w", path, ErrMissingID)
	}
	if len(appID) > MaxIDLength || !appIDPattern.MatchString(appID) {
		return types.AppInfo{}, fmt.Errorf("%s: %w: %q", path, ErrInvalidID, appID)
	}

	label := mf.Label
	if label == "" {
		label = mf.Name
	}
	label = SanitizeLabel(label)
	if label == "" {
		label = appID
	}

	removable := true
	if mf.Removable != nil {
		removable = *mf.Removable
	}

	icon := mf.Icon
	if icon != "" && !filepath.IsAbs(icon) {
		icon = filepath.Join(filepath.Dir(path), icon)
	}

	return types.AppInfo{
		AppID:     appID,
		Label:     label,
		IconPath:  icon,
		Exec:      strings.TrimSpace(mf.Exec),
		Removable: removable,
		Badge:     max(mf.Badge, 0),
	}, nil
}

// SanitizeLabel reduces a display label to plain, single-line text.
func SanitizeLabel(s string) string {
	s = html.UnescapeString(sanitizer.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > MaxLabelLength {
		s = strings.ToValidUTF8(s[:MaxLabelLength], "")
	}
	return s
}
