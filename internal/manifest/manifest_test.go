package manifest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	m := New("production")
	_, err := uuid.Parse(m.BuildID)
	require.NoError(t, err)

	m.Add("main.js", "static/js/bundle.js", "/static/js/bundle.js", []byte("console.log(1)"))
	m.Add("styles.css", "static/css/style.css", "/static/css/style.css", []byte("a{}"))
	m.Add("main.js", "static/js/other.js", "/static/js/other.js", []byte("x"))
	m.AddEntrypoint("static/css/style.css")
	m.AddEntrypoint("static/js/bundle.js")

	require.Equal(t, "/static/js/bundle.js", m.Files["main.js"])
	require.Equal(t, "/static/js/other.js", m.Files["main.js#static/js/other.js"])
	require.Equal(t, []string{"static/css/style.css", "static/js/bundle.js", "static/js/other.js"}, m.Paths())

	data, err := m.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(data), `"buildId": "`+m.BuildID+`"`)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, m, parsed)
}

func TestNew_UniqueBuildIDs(t *testing.T) {
	require.NotEqual(t, New("development").BuildID, New("development").BuildID)
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("hello"))
	require.Len(t, a, 16)
	require.Equal(t, a, Checksum([]byte("hello")))
	require.NotEqual(t, a, Checksum([]byte("hello!")))
	require.Equal(t, "0000000000000000", Checksum(nil))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{"))
	require.Error(t, err)
}
