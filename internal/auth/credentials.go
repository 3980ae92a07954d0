package auth

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".storyfairy"
	credentialFile = "credentials.gpg"
)

// GetSecret retrieves a provider credential for local runs.
// Priority order:
//  1. The named environment variable
//  2. A NAME=value line in the GPG-encrypted file ~/.storyfairy/credentials.gpg
func GetSecret(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		log.Debug().Str("name", name).Msg("Using credential from environment variable")
		return v, nil
	}

	creds, err := getFromGPG()
	if err == nil {
		if v := creds[name]; v != "" {
			log.Debug().Str("name", name).Msg("Using credential from GPG encrypted file")
			return v, nil
		}
		err = fmt.Errorf("%s not present in %s", name, credentialFile)
	}

	log.Debug().Err(err).Str("name", name).Msg("Credential not found")
	return "", fmt.Errorf("%s not found. Set it in the environment or add it to ~/%s/%s", name, credentialDir, credentialFile)
}

// getFromGPG decrypts the credentials file and parses its NAME=value lines.
func getFromGPG() (map[string]string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	// Build GPG command with optional passphrase file for non-interactive use
	args := []string{"--decrypt", "--quiet"}

	if passphrasePath, err := getPassphrasePath(); err == nil {
		if fi, statErr := os.Stat(passphrasePath); statErr == nil {
			// Passphrase file must be owner-only.
			if mode := fi.Mode().Perm(); mode&0077 != 0 {
				log.Warn().
					Str("passphrase_file", passphrasePath).
					Str("permissions", fmt.Sprintf("%04o", mode)).
					Msg("Passphrase file has insecure permissions (should be 0600); skipping")
			} else {
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
			}
		}
	}

	args = append(args, credPath)
	output, err := exec.Command("gpg", args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("GPG decryption failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("GPG decryption failed: %w", err)
	}

	return parseCredentials(string(output)), nil
}

// parseCredentials reads NAME=value lines, ignoring blanks and # comments.
func parseCredentials(s string) map[string]string {
	creds := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		creds[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return creds
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// getPassphrasePath looks for .gpg-passphrase next to the executable, then
// in the working directory.
func getPassphrasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	passphrasePath := filepath.Join(filepath.Dir(exe), ".gpg-passphrase")
	if _, err := os.Stat(passphrasePath); err == nil {
		return passphrasePath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, ".gpg-passphrase"), nil
}
