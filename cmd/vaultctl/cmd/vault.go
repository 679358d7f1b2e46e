package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/hedge/vaultsync/internal/keyring"
	"github.com/hedge/vaultsync/internal/vault"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <vault>",
	Short: "Create an empty encrypted vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}

		password, err := newVaultPassword()
		if err != nil {
			return err
		}
		defer vault.ClearBytes(password)

		if err := vault.Save(args[0], password, vault.New()); err != nil {
			return err
		}
		fmt.Printf("Created %s\n", args[0])
		return nil
	},
}

var (
	addUsername string
	addURL      string
	addNotes    string
	addCategory string
	addSecret   bool
)

var addCmd = &cobra.Command{
	Use:   "add <vault> <title>",
	Short: "Add an item to the vault",
	Long: `Add an item to the vault.

Examples:
  vaultctl add personal.db "Mail" --username me@example.com --url https://mail.example.com --secret`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := vaultPassword(args[0])
		if err != nil {
			return err
		}
		defer vault.ClearBytes(password)

		v, err := vault.Load(args[0], password)
		if err != nil {
			return err
		}

		item := v.Add(args[1])
		item.Username = optional(addUsername)
		item.URL = optional(addURL)
		item.Notes = optional(addNotes)
		item.Category = optional(addCategory)

		if addSecret {
			secret, err := readPassword("Item password: ")
			if err != nil {
				return err
			}
			item.Password = optional(string(secret))
			vault.ClearBytes(secret)
		}

		v.Update(item)
		if err := vault.Save(args[0], password, v); err != nil {
			return err
		}
		fmt.Println(item.ID)
		return nil
	},
}

var rememberCmd = &cobra.Command{
	Use:   "remember <vault>",
	Short: "Save the vault password in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Enter password: ")
		if err != nil {
			return err
		}
		defer vault.ClearBytes(password)

		if _, err := vault.Load(args[0], password); err != nil {
			if errors.Is(err, vault.ErrAuthFailed) {
				return errors.New("wrong password")
			}
			return err
		}

		if err := keyring.SavePassword(args[0], string(password)); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		fmt.Println("Password saved to keyring")
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <vault>",
	Short: "Remove the vault password from the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !keyring.HasPassword(args[0]) {
			fmt.Println("No password stored")
			return nil
		}
		if err := keyring.DeletePassword(args[0]); err != nil {
			return fmt.Errorf("failed to remove from keyring: %w", err)
		}
		fmt.Println("Password removed from keyring")
		return nil
	},
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func init() {
	addCmd.Flags().StringVar(&addUsername, "username", "", "item username")
	addCmd.Flags().StringVar(&addURL, "url", "", "item URL")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "item notes")
	addCmd.Flags().StringVar(&addCategory, "category", "", "item category")
	addCmd.Flags().BoolVar(&addSecret, "secret", false, "prompt for an item password")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(forgetCmd)
}
