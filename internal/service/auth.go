package service

import "context"

// AuthService delegates token verification to the remote API. Sessions and
// credentials are owned elsewhere; this service only answers "is this bearer
// token still valid".
type AuthService struct {
	dev DeviceClient
}

func NewAuthService(dev DeviceClient) *AuthService {
	return &AuthService{dev: dev}
}

func (s *AuthService) Verify(ctx context.Context, token string) error {
	return s.dev.VerifyToken(ctx, token)
}
