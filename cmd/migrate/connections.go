package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/commercesync/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errUsage = errors.New("invalid arguments")

// connect binds a platform shop to an organization, reconnecting a
// previously disconnected shop of the same organization.
// args: <platform> <shop_id> <organization_id> [shop_name]
func connect(ctx context.Context, repo integration.PlatformConnectionRepository, log *zap.Logger, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errUsage
	}
	platform, err := integration.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	orgID, err := uuid.Parse(args[2])
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidOrganizationID, err)
	}
	var shopName string
	if len(args) == 4 {
		shopName = args[3]
	}

	conn, err := integration.NewPlatformConnection(orgID, platform, args[1], shopName)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, conn); err != nil {
		return err
	}
	log.Info("Platform connection saved",
		zap.String("platform", platform.String()),
		zap.String("shop_id", conn.ShopID),
		zap.String("organization_id", orgID.String()),
	)
	return nil
}

// disconnect stops a shop from resolving to its organization. The row is
// kept so sync log entries stay attributable.
// args: <platform> <shop_id>
func disconnect(ctx context.Context, repo integration.PlatformConnectionRepository, log *zap.Logger, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	platform, err := integration.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	conn, err := repo.FindByShop(ctx, platform, args[1])
	if err != nil {
		return err
	}
	if !conn.IsConnected {
		log.Info("Platform connection already disconnected", zap.String("shop_id", conn.ShopID))
		return nil
	}
	conn.Disconnect()
	if err := repo.Save(ctx, conn); err != nil {
		return err
	}
	log.Info("Platform connection disconnected",
		zap.String("platform", platform.String()),
		zap.String("shop_id", conn.ShopID),
		zap.String("organization_id", conn.OrganizationID.String()),
	)
	return nil
}

// listConnections logs every connection of an organization.
// args: <organization_id>
func listConnections(ctx context.Context, repo integration.PlatformConnectionRepository, log *zap.Logger, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	orgID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrInvalidOrganizationID, err)
	}
	conns, err := repo.FindByOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	for _, c := range conns {
		log.Info("Platform connection",
			zap.String("platform", c.Platform.String()),
			zap.String("platform_name", c.Platform.DisplayName()),
			zap.String("shop_id", c.ShopID),
			zap.String("shop_name", c.ShopName),
			zap.Bool("connected", c.IsConnected),
		)
	}
	log.Info("Platform connections listed",
		zap.String("organization_id", orgID.String()),
		zap.Int("count", len(conns)),
	)
	return nil
}
