package config

import "time"

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetRequirePKCE() bool {
	return false // Currently optional
}

func (Security) GetMaxSessionAge() time.Duration {
	return 30 * time.Minute // Sessions expire 30 minutes after creation, active or not
}

func (Security) GetSweepInterval() time.Duration {
	return 5 * time.Minute
}

func (Security) GetStaticSecretIdentityExpiry() time.Duration {
	return 24 * time.Hour
}
