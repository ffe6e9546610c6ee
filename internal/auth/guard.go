package auth

import "github.com/hitoshi/messagely/internal/model"

// RequireLoggedIn は有効なIdentityが存在することを要求する。
func RequireLoggedIn(identity *model.Identity) error {
	if identity == nil || identity.Username == "" {
		return model.NewUnauthorizedError()
	}
	return nil
}

// RequireCorrectUser はIdentityのユーザー名がtargetと一致することを要求する。
// 未ログインの場合はUNAUTHORIZED、不一致の場合はFORBIDDENを返す。
func RequireCorrectUser(identity *model.Identity, target string) error {
	if err := RequireLoggedIn(identity); err != nil {
		return err
	}
	if identity.Username != target {
		return model.NewForbiddenError()
	}
	return nil
}
