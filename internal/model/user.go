// Package model はドメインモデルを定義する。
package model

import "time"

// User はローカルDBにミラーされたユーザーレコードを表す。
// 認証情報の本体は外部IDプロバイダー側にあり、こちらはプロフィールの写し。
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string // bcryptハッシュ。平文パスワードは保持しない。
	PhoneNumber  string
	NationalID   string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
}
