package internal

import (
	"fmt"
	"time"
)

// Config is the process-wide configuration, loaded from the environment.
// Defaults match the modeled deployment: loopback endpoint on port 12345
// with a 50-connection ceiling.
type Config struct {
	Host             string        `env:"CHAT_HOST,default=127.0.0.1"`
	Port             int           `env:"CHAT_PORT,default=12345"`
	MaxClients       int           `env:"MAX_CLIENTS,default=50"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	EnableModeration bool          `env:"ENABLE_MODERATION,default=true"`
	MaskCharacter    string        `env:"MASK_CHARACTER,default=*"`
}

// MaskRune validates that MASK_CHARACTER holds exactly one character.
func MaskRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MASK_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
