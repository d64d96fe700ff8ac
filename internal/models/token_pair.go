package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и при ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для авторизации запросов (bearer);
//   - RefreshToken — долгоживущий одноразовый JWT с jti; клиент получает его
//     в HTTP-only cookie и предъявляет для выпуска новой пары;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
