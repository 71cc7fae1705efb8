package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilesFixture = `[default]
aws_access_key_id = AKIADEFAULT
aws_secret_access_key = defaultsecret
region = us-east-1

[minio-local]
endpoint_url = localhost:9000
aws_access_key_id = minioadmin
aws_secret_access_key = minioadmin

[broken]
region = eu-west-1
`

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfiles(t *testing.T) {
	profiles, err := LoadProfiles(writeProfiles(t, profilesFixture))
	require.NoError(t, err)
	require.Len(t, profiles, 2, "sections without an access key are skipped")

	def, ok := FindProfile(profiles, "default")
	require.True(t, ok)
	assert.Equal(t, "AKIADEFAULT", def.Credentials.AccessKey)
	assert.Equal(t, "us-east-1", def.Credentials.Region)

	local, ok := FindProfile(profiles, "minio-local")
	require.True(t, ok)
	assert.Equal(t, "localhost:9000", local.Credentials.Endpoint)

	_, ok = FindProfile(profiles, "broken")
	assert.False(t, ok)
}

func TestLoadProfilesMissingFile(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, profiles)

	profiles, err = LoadProfiles("")
	require.NoError(t, err)
	assert.Nil(t, profiles)
}

func TestLoadProfilesMalformed(t *testing.T) {
	_, err := LoadProfiles(writeProfiles(t, "not an ini file\n===\n[unclosed"))
	assert.Error(t, err)
}
