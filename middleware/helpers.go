package middleware

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/dance-battle/services"
)

// GetAdminClaimsFromContext возвращает claims, сохранённые RequireAdmin.
func GetAdminClaimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(adminClaimsContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("admin claims not found in context or invalid type")
	}
	return claims, nil
}

func IsAdmin(ctx context.Context) bool {
	claims, err := GetAdminClaimsFromContext(ctx)
	if err != nil {
		return false
	}
	role, _ := claims[services.ClaimRole].(string)
	return role == services.RoleAdmin
}
