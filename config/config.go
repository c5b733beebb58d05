package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// InitConfig loads an optional .env file into the environment.
func InitConfig(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			log.Println("No .env file, using process environment")
			return
		}
		log.Printf("Error loading environment variables: %v", err)
		return
	}

	log.Println("Successfully loaded environment variables")
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", errors.New("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", errors.Errorf("failed to get variable for %s", v)
	}

	return b, nil
}

const (
	ModeLocal  = "local"
	ModeListen = "listen"
	ModeDial   = "dial"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	ShmName    string
	SemName    string
	ShmDir     string
	ParamsPath string

	Mode     string
	PeerAddr string
	Wire     string

	ViewerAddr string
	LogFile    string

	DisplayWidth  int
	DisplayHeight int
}

func Defaults() Settings {
	return Settings{
		ShmName:       "drone_blackboard",
		SemName:       "drone_blackboard.lock",
		ParamsPath:    "appsettings.json",
		Mode:          ModeLocal,
		PeerAddr:      "127.0.0.1:5555",
		Wire:          "text",
		DisplayWidth:  60,
		DisplayHeight: 20,
	}
}

// Load overlays set environment variables on Defaults.
func Load() (Settings, error) {
	s := Defaults()
	str(&s.ShmName, "BB_SHM_NAME")
	str(&s.SemName, "BB_SEM_NAME")
	str(&s.ShmDir, "BB_SHM_DIR")
	str(&s.ParamsPath, "DRONE_PARAMS")
	str(&s.Mode, "DRONE_MODE")
	str(&s.PeerAddr, "DRONE_PEER_ADDR")
	str(&s.Wire, "PEER_WIRE")
	str(&s.ViewerAddr, "VIEWER_ADDR")
	str(&s.LogFile, "LOG_FILE")
	if err := num(&s.DisplayWidth, "DISPLAY_WIDTH"); err != nil {
		return s, err
	}
	if err := num(&s.DisplayHeight, "DISPLAY_HEIGHT"); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	switch s.Mode {
	case ModeLocal, ModeListen, ModeDial:
	default:
		return errors.Errorf("unknown mode %q", s.Mode)
	}
	switch s.Wire {
	case "text", "binary":
	default:
		return errors.Errorf("unknown peer wire %q", s.Wire)
	}
	if s.DisplayWidth < 3 || s.DisplayHeight < 3 {
		return errors.Errorf("display %dx%d too small", s.DisplayWidth, s.DisplayHeight)
	}
	if s.ShmName == "" || s.SemName == "" {
		return errors.New("segment and lock names must be set")
	}
	return nil
}

// Networked reports whether a peer link runs.
func (s Settings) Networked() bool {
	return s.Mode == ModeListen || s.Mode == ModeDial
}

func str(dst *string, key string) {
	if v, err := GetEnvVariable(key); err == nil {
		*dst = v
	}
}

func num(dst *int, key string) error {
	v, err := GetEnvVariable(key)
	if err != nil {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	*dst = n
	return nil
}
