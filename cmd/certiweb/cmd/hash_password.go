package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	auth "github.com/certiweb/go-auth"
)

var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal

	hashCost int
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the bcrypt hash of a password read from stdin",
	Long: `Reads a password without echo when stdin is a terminal, or the first line
of stdin otherwise, and prints its bcrypt hash.`,
	Args: cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		password, err := promptPassword(cobraCmd.InOrStdin(), cobraCmd.ErrOrStderr())
		if err != nil {
			return err
		}

		cost := hashCost
		if cost == 0 {
			cost = cfg.GetBcryptCost()
		}

		hash, err := auth.NewHasher(cost).HashPassword(password)
		if err != nil {
			return err
		}

		fmt.Fprintln(cobraCmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 0, "bcrypt cost, defaults to auth.bcrypt_cost")
}

func promptPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
