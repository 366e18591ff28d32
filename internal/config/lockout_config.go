package config

import "time"

type LockoutConfig interface {
	GetLockoutThreshold() int
	GetLockoutCooldown() time.Duration
}

type Lockout struct {
	Threshold int           `yaml:"threshold" env:"TABSESSION_LOCKOUT_THRESHOLD"`
	Cooldown  time.Duration `yaml:"cooldown" env:"TABSESSION_LOCKOUT_COOLDOWN"`
}

func (l *Lockout) applyDefaults() {
	if l.Threshold == 0 {
		l.Threshold = 3
	}
	if l.Cooldown == 0 {
		l.Cooldown = 5 * time.Minute
	}
}
