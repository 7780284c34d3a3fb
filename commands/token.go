package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/repository"
	"github.com/yeremiapane/restqr/services"
	"github.com/yeremiapane/restqr/utils"
)

var (
	tableNumber     int
	sessionDuration time.Duration
	jsonOutput      bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage table tokens",
}

func tokenService() (*services.TokenService, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return services.NewTokenService(
		repository.NewTokenRepository(db),
		services.TokenConfig{SessionDuration: cfg.SessionDuration, CreateRetries: cfg.TokenCreateRetries},
		utils.InfoLogger,
	), nil
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Print the table's active token, issuing one if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := tokenService()
		if err != nil {
			return err
		}
		token, err := svc.GetOrCreate(cmd.Context(), tableNumber)
		if err != nil {
			return err
		}
		menuURL := fmt.Sprintf("%s/menu/%s", cfg.PublicBaseURL, token.Token)
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
				"table_number":    token.TableNumber,
				"token":           token.Token,
				"activation_code": token.ActivationCode,
				"menu_url":        menuURL,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "table %d\n  token:           %s\n  activation code: %s\n  menu url:        %s\n",
			token.TableNumber, token.Token, token.ActivationCode, menuURL)
		return nil
	},
}

var tokenRetireCmd = &cobra.Command{
	Use:   "retire",
	Short: "Retire the table's active token",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := tokenService()
		if err != nil {
			return err
		}
		if err := svc.Retire(cmd.Context(), tableNumber); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "table %d token retired\n", tableNumber)
		return nil
	},
}

var tokenActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Open a session window on the table's active token",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := tokenService()
		if err != nil {
			return err
		}
		token, err := svc.Activate(cmd.Context(), tableNumber, sessionDuration)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "table %d session open until %s\n",
			token.TableNumber, token.SessionEnd.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.PersistentFlags().IntVar(&tableNumber, "table", 0, "Table number")
	_ = tokenCmd.MarkPersistentFlagRequired("table")
	tokenIssueCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	tokenActivateCmd.Flags().DurationVar(&sessionDuration, "duration", 0, "Session length (default SESSION_DURATION)")

	tokenCmd.AddCommand(tokenIssueCmd, tokenRetireCmd, tokenActivateCmd)
	rootCmd.AddCommand(tokenCmd)
}
