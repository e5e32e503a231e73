package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueSpec_Rendering(t *testing.T) {
	spec := VenueSpec{
		IDTemplate:        "ICLR.cc/%d/Conference",
		LegacyInvitation:  "ICLR.cc/%d/Conference/-/Blind_Submission",
		RevisedInvitation: "ICLR.cc/%d/Conference/-/Submission",
	}

	assert.Equal(t, "ICLR.cc/2023/Conference", spec.ID(2023))
	assert.Equal(t, "ICLR.cc/2023/Conference/-/Blind_Submission", spec.Invitation(2023, true))
	assert.Equal(t, "ICLR.cc/2024/Conference/-/Submission", spec.Invitation(2024, false))
}

func TestLoadRegistry_MissingFileUsesDefaults(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	spec, err := reg.Resolve("ICLR")
	require.NoError(t, err)
	assert.Equal(t, "ICLR.cc/2023/Conference", spec.ID(2023))

	_, err = reg.Resolve("KDD")
	assert.Error(t, err)
}

func TestLoadRegistry_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.yaml")
	content := `venues:
  CoLLAs:
    id_template: "lifelong-ml.cc/CoLLAs/%d/Conference"
    legacy_invitation: "lifelong-ml.cc/CoLLAs/%d/Conference/-/Blind_Submission"
    revised_invitation: "lifelong-ml.cc/CoLLAs/%d/Conference/-/Submission"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	spec, err := reg.Resolve("CoLLAs")
	require.NoError(t, err)
	assert.Equal(t, "lifelong-ml.cc/CoLLAs/2023/Conference", spec.ID(2023))
}

func TestLoadRegistry_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.yaml")
	require.NoError(t, os.WriteFile(path, []byte("venues: [not a map"), 0o644))

	_, err := LoadRegistry(path)
	assert.Error(t, err)
}
