package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

// Profile is one named credential set from the profiles file. The file uses
// the AWS credentials layout so an existing ~/.aws/credentials works as-is,
// with endpoint_url as the S3-compatible extension.
type Profile struct {
	Name        string
	Credentials deltaglider.Credentials
}

// LoadProfiles parses the ini file at path. A missing file is not an error;
// the console simply offers no profile shortcuts on the login screen.
func LoadProfiles(path string) ([]Profile, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parsing profiles file %s: %w", path, err)
	}

	var profiles []Profile
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection && len(section.Keys()) == 0 {
			continue
		}
		creds := deltaglider.Credentials{
			Endpoint:     section.Key("endpoint_url").String(),
			AccessKey:    section.Key("aws_access_key_id").String(),
			SecretKey:    section.Key("aws_secret_access_key").String(),
			SessionToken: section.Key("aws_session_token").String(),
			Region:       section.Key("region").String(),
		}
		if creds.AccessKey == "" {
			continue
		}
		profiles = append(profiles, Profile{Name: section.Name(), Credentials: creds})
	}
	return profiles, nil
}

// FindProfile returns the named profile, if present.
func FindProfile(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
