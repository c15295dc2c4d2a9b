package kv

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			// Everything after the key is the value, spaces included
			value := strings.Join(args[1:], " ")
			if err := kvClient.Set(key, value); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, loaded, err := kvClient.Get(key)
			if err != nil {
				return err
			}
			if !loaded {
				fmt.Printf("key=%s not found\n", key)
				return nil
			}
			fmt.Printf("key=%s, value=%s\n", key, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvClient.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for key-value store operations",
		Long:  `Interactive shell for key-value store operations. Supported commands: SET <key> <value>, GET <key>, DEL <key>, exit`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
)

// runREPL reads commands line by line and executes them against the
// connected client until EOF or exit
func runREPL(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	prompt := func() { _, _ = fmt.Fprint(out, "vaultkv> ") }
	reply := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(out, format+"\n", args...) }

	prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			prompt()
			continue
		}

		verb, rest, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EXIT", "QUIT":
			return nil

		case "SET":
			key, value, found := strings.Cut(rest, " ")
			if key == "" || !found {
				reply("usage: SET <key> <value>")
				break
			}
			if err := kvClient.Set(key, value); err != nil {
				reply("error: %v", err)
				break
			}
			reply("OK")

		case "GET":
			if rest == "" {
				reply("usage: GET <key>")
				break
			}
			value, loaded, err := kvClient.Get(rest)
			switch {
			case err != nil:
				reply("error: %v", err)
			case !loaded:
				reply("NOT_FOUND")
			default:
				reply("%s", value)
			}

		case "DEL", "DELETE":
			if rest == "" {
				reply("usage: DEL <key>")
				break
			}
			if err := kvClient.Delete(rest); err != nil {
				reply("error: %v", err)
				break
			}
			reply("OK")

		default:
			reply("unknown command %q (try SET, GET, DEL, exit)", verb)
		}
		prompt()
	}
	return scanner.Err()
}
