package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/pkg/logger"
	"github.com/spf13/cobra"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Administer attestation campaigns",
}

var campaignLaunchCmd = &cobra.Command{
	Use:   "launch [campaign-id]",
	Short: "Launch a draft campaign, or add missing records to an active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCampaign(args[0], func(ctx context.Context, svc *services, id int64) error {
			res, err := svc.Attestation.LaunchCampaign(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("campaign %d launched: %d records, %d invites created\n", res.CampaignID, res.RecordsCreated, res.InvitesCreated)
			return nil
		})
	},
}

var campaignCloseCmd = &cobra.Command{
	Use:   "close [campaign-id]",
	Short: "Complete an active campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCampaign(args[0], func(ctx context.Context, svc *services, id int64) error {
			c, err := svc.Attestation.CompleteCampaign(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("campaign %d is now %s\n", c.ID, c.Status)
			return nil
		})
	},
}

var campaignCancelCmd = &cobra.Command{
	Use:   "cancel [campaign-id]",
	Short: "Cancel a draft or active campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCampaign(args[0], func(ctx context.Context, svc *services, id int64) error {
			c, err := svc.Attestation.CancelCampaign(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("campaign %d is now %s\n", c.ID, c.Status)
			return nil
		})
	},
}

func withCampaign(rawID string, fn func(ctx context.Context, svc *services, id int64) error) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid campaign id %q", rawID)
	}

	cfg, db, gdb, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := buildServices(cfg, gdb, logger.LoggerWrapper(), true)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := internal.ContextWithActor(context.Background(), internal.SystemActor)
	return fn(ctx, svc, id)
}

func init() {
	campaignCmd.AddCommand(campaignLaunchCmd)
	campaignCmd.AddCommand(campaignCloseCmd)
	campaignCmd.AddCommand(campaignCancelCmd)
}
