package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifestFormats(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
	}{
		{
			name: "yaml",
			path: "/apps/mail/app.yaml",
			data: "id: org.example.mail\nlabel: Mail\nicon: mail.png\nexec: mail --new\nremovable: false\n",
		},
		{
			name: "json",
			path: "/apps/mail/app.json",
			data: `{"id":"org.example.mail","label":"Mail","icon":"mail.png","exec":"mail --new","removable":false}`,
		},
		{
			name: "toml",
			path: "/apps/mail/app.toml",
			data: "id = \"org.example.mail\"\nlabel = \"Mail\"\nicon = \"mail.png\"\nexec = \"mail --new\"\nremovable = false\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := ParseManifest(tt.path, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, "org.example.mail", app.AppID)
			assert.Equal(t, "Mail", app.Label)
			assert.Equal(t, "/apps/mail/mail.png", app.IconPath)
			assert.Equal(t, "mail --new", app.Exec)
			assert.False(t, app.Removable)
		})
	}
}

func TestParseManifestDefaults(t *testing.T) {
	app, err := ParseManifest("/apps/x.yml", []byte("id: calc\nname: Calculator\nicon: /usr/share/calc.svg\n"))
	require.NoError(t, err)

	assert.Equal(t, "Calculator", app.Label, "name is the fallback label")
	assert.Equal(t, "/usr/share/calc.svg", app.IconPath, "absolute icon paths are kept")
	assert.True(t, app.Removable)

	app, err = ParseManifest("/apps/x.json", []byte(`{"id":"bare","badge":-3}`))
	require.NoError(t, err)
	assert.Equal(t, "bare", app.Label, "id is the last resort label")
	assert.Equal(t, 0, app.Badge)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
		want error
	}{
		{"missing id", "/a.yaml", "label: Mail\n", ErrMissingID},
		{"blank id", "/a.json", `{"id":"  "}`, ErrMissingID},
		{"bad id", "/a.json", `{"id":"../../etc"}`, ErrInvalidID},
		{"unknown ext", "/a.ini", "id=x", ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(tt.path, []byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseManifest("/a.json", []byte(`{"id":`))
	assert.Error(t, err)

	_, err = ParseManifest("/a.json", make([]byte, MaxManifestSize+1))
	assert.ErrorIs(t, err, ErrManifestSize)
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mail", "Mail"},
		{"<b>Mail</b>", "Mail"},
		{"<script>alert(1)</script>Notes", "Notes"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"  spaced \n out  ", "spaced out"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeLabel(tt.in), tt.in)
	}
}
