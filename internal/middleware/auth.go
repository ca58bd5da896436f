package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go_5_course_market/internal/config"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/webutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// devIdentity はローカル開発用 (auth.enabled=false) の Identity を組み立てます。
// X-Debug-User-Id / X-Debug-Role ヘッダーで上書きできます。
func devIdentity(r *http.Request) model.Identity {
	identity := model.Identity{UserID: uuid.MustParse(config.DevUserID), Role: model.RoleAdmin}
	if idStr := r.Header.Get("X-Debug-User-Id"); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			identity.UserID = id
		}
	}
	if roleStr := r.Header.Get("X-Debug-Role"); roleStr != "" {
		identity.Role = model.Role(roleStr)
	}
	return identity
}

// parseIdentity は Bearer トークンを検証し Identity を取り出します。
// 認証ヘッダーが無い場合は (zero Identity, false, nil) を返します。
func parseIdentity(r *http.Request, cfg *config.Config) (model.Identity, bool, error) {
	if !cfg.Auth.Enabled {
		return devIdentity(r), true, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return model.Identity{}, false, nil
	}

	// "Bearer {token}" の形式を検証
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
		return model.Identity{}, false, model.NewAppError("UNAUTHORIZED", "Authorizationヘッダーの形式が正しくありません。", "", model.ErrUnauthorized)
	}
	tokenString := headerParts[1]

	// JWTをパースし、署名と有効期限を検証
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 署名アルゴリズムが期待通り(HS256)かチェック
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Auth.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, false, model.NewAppError("INVALID_TOKEN", "トークンが無効です。", "", model.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, false, model.NewAppError("INVALID_TOKEN", "トークンが無効です。", "", model.ErrUnauthorized)
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return model.Identity{}, false, model.NewAppError("INVALID_TOKEN", "トークンにユーザー情報が含まれていません。", "", model.ErrUnauthorized)
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return model.Identity{}, false, model.NewAppError("INVALID_TOKEN", "トークンのユーザー情報が不正です。", "", model.ErrUnauthorized)
	}

	role := model.RoleStudent
	if r, ok := claims["role"].(string); ok && r != "" {
		role = model.Role(r)
	}

	return model.Identity{UserID: userID, Role: role}, true, nil
}

// JWTAuthMiddleware は Authorization ヘッダーの Bearer トークンを検証し、
// Identity をコンテキストにセットするミドルウェアです。未認証は401で弾きます。
func JWTAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())

			identity, found, err := parseIdentity(r, cfg)
			if err != nil {
				logger.Warn("JWT auth failed", "error", err)
				webutil.HandleError(w, logger, err)
				return
			}
			if !found {
				logger.Warn("JWT auth failed: Authorization header missing")
				appErr := model.NewAppError("UNAUTHORIZED", "Authorizationヘッダーが必要です。", "", model.ErrUnauthorized)
				webutil.HandleError(w, logger, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), model.IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware はトークンがあれば Identity をセットし、
// 無ければ匿名のままリクエストを通します。プレビューレッスン閲覧用。
// トークンが「ある」のに不正な場合は401を返します（黙って匿名扱いにはしない）。
func OptionalAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := GetLogger(r.Context())

			identity, found, err := parseIdentity(r, cfg)
			if err != nil {
				logger.Warn("JWT auth failed on optional route", "error", err)
				webutil.HandleError(w, logger, err)
				return
			}
			if !found {
				// 匿名ユーザーとして通す (Identityゼロ値 = RoleNone)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), model.IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext はコンテキストから Identity を取得します。
// 見つからない場合は匿名ユーザー（ゼロ値）を返します。
func GetIdentityFromContext(ctx context.Context) model.Identity {
	if identity, ok := ctx.Value(model.IdentityKey).(model.Identity); ok {
		return identity
	}
	return model.Identity{}
}

// RequireIdentityFromContext は認証必須ルートで Identity を取得します。
func RequireIdentityFromContext(ctx context.Context) (model.Identity, error) {
	identity, ok := ctx.Value(model.IdentityKey).(model.Identity)
	if !ok {
		// ミドルウェアが正しく適用されていない等の内部エラー
		return model.Identity{}, model.NewAppError("INTERNAL_SERVER_ERROR", "コンテキストからユーザー情報を取得できませんでした。", "", model.ErrInternalServer)
	}
	return identity, nil
}
