// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashは認証処理とリポジトリ内でのみ扱い、レスポンスには含めない。
type User struct {
	Username     string
	PasswordHash string `json:"-"`
	FirstName    string
	LastName     string
	Phone        string
	JoinAt       time.Time
	LastLoginAt  *time.Time
}

// Profile はパスワードハッシュを除いた公開プロフィールを返す。
func (u *User) Profile() UserProfile {
	return UserProfile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

// Detail はパスワードハッシュを除いた詳細情報を返す。
func (u *User) Detail() UserDetail {
	return UserDetail{
		UserProfile: u.Profile(),
		JoinAt:      u.JoinAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// UserProfile はユーザー一覧やメッセージの相手として表示する公開情報。
type UserProfile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// UserDetail はユーザー詳細として表示する情報。
type UserDetail struct {
	UserProfile
	JoinAt      time.Time  `json:"join_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Identity は検証済みトークンから得られる呼び出し元の識別情報。
type Identity struct {
	Username string
}
