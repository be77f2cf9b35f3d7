package ntpproxy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadConfig applies the directives in the file at path on top of policy.
//
//	server 192.0.2.1
//	delay 600
//	leap add|del
//	verbose
func LoadConfig(path string, policy *Policy) error {
	file, err := os.Open(path)
	if err != nil {
		return &ConfigError{Field: "config", Reason: err.Error()}
	}
	defer file.Close()

	return parseConfig(file, policy)
}

func parseConfig(r io.Reader, policy *Policy) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		arguments := strings.Fields(scanner.Text())
		if len(arguments) == 0 || strings.HasPrefix(arguments[0], "#") {
			continue
		}

		switch arguments[0] {
		case "server":
			if len(arguments) != 2 {
				return configParseError(line, "server takes exactly one address")
			}
			policy.Source = arguments[1]
		case "delay":
			if len(arguments) != 2 {
				return configParseError(line, "delay takes exactly one value")
			}
			lead, err := strconv.ParseInt(arguments[1], 10, 64)
			if err != nil {
				return configParseError(line, "delay argument requires an integer value")
			}
			policy.Lead = lead
		case "leap":
			if len(arguments) != 2 {
				return configParseError(line, "leap takes add or del")
			}
			polarity, err := ParsePolarity(arguments[1])
			if err != nil {
				return configParseError(line, err.Error())
			}
			policy.Polarity = polarity
		case "verbose":
			policy.Verbose = true
		default:
			return configParseError(line, fmt.Sprintf("invalid command %q", arguments[0]))
		}
	}

	if err := scanner.Err(); err != nil {
		return &ConfigError{Field: "config", Reason: err.Error()}
	}
	return nil
}

func configParseError(line int, reason string) error {
	return &ConfigError{Field: "config", Reason: fmt.Sprintf("line %d: %s", line, reason)}
}
