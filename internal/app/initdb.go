package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	superUsername   = "admin"
	defaultPassword = "restopos"
)

// checkSuper seeds the default operator and repairs it when disabled
func (a *Application) checkSuper() {
	repo := repository.NewGormOperatorRepository(a.gormDB)
	ctx := context.Background()

	operator, err := repo.GetByUsername(ctx, superUsername)
	switch {
	case errors.Is(err, repository.ErrOperatorNotFound):
		hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Error("failed to hash default password", zap.Error(err))
			return
		}
		if err := repo.Create(ctx, &domain.SysOpr{
			ID:       common.UUIDint64(),
			Username: superUsername,
			Password: string(hashed),
			Level:    "super",
			Status:   common.ENABLED,
			Remark:   "super",
		}); err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Error("failed to hash default password", zap.Error(err))
			return
		}
		updates["password"] = string(hashed)
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

// checkDefaultTables creates tables 1..n on an empty floor
func (a *Application) checkDefaultTables() {
	n := a.appConfig.Pos.DefaultTables
	if n <= 0 {
		return
	}
	var count int64
	if err := a.gormDB.Model(&domain.DiningTable{}).Count(&count).Error; err != nil {
		zap.L().Error("failed to count tables", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	repo := repository.NewGormTableRepository(a.gormDB)
	for i := 1; i <= n; i++ {
		if err := repo.Create(context.Background(), &domain.DiningTable{
			ID:       common.UUIDint64(),
			Number:   i,
			Capacity: 4,
			State:    domain.TableAvailable,
		}); err != nil {
			zap.L().Error("failed to create default table", zap.Int("number", i), zap.Error(err))
			return
		}
	}
	zap.L().Info("initialized default tables", zap.Int("count", n))
}

// VerifyPassword checks an operator password against its stored hash
func VerifyPassword(opr *domain.SysOpr, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(opr.Password), []byte(password)) == nil
}
