package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForTopic asks for a story topic on in. Returns "" if nothing was
// entered.
func PromptForTopic(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Story topic: ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read topic")
		return ""
	}

	return strings.TrimSpace(input)
}
