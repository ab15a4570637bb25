package model

import "time"

// APIKey はクライアント向けAPIキーを表す。
// キー文字列は発行時に生成され、以後変更されない。
// 失効はIsActive=false + RevokedAtで表現し、レコード自体は残す。
type APIKey struct {
	ID        int64
	Key       string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	RevokedAt *time.Time
}
