package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// artifactUploader ships exported artifacts to the backend. The backend
// hands out a signed upload URL against a device JWT; the artifact is then
// PUT to that URL.
type artifactUploader struct {
	HTTPClient    *http.Client
	BackendURL    string
	SigningMethod jwt.SigningMethod
	SigningKey    interface{}
	TokenLifetime time.Duration
	DeviceID      string
	ProjectID     string
}

func loadPrivateKey(path, algorithm string) (key interface{}, err error) {
	rawKey, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(rawKey)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(rawKey)
	default:
		err = fmt.Errorf("unsupported key algorithm: %s", algorithm)
	}
	return key, err
}

func (u *artifactUploader) createToken() (string, error) {
	type jwtClaims struct {
		DeviceID string `json:"deviceId"`
		jwt.RegisteredClaims
	}
	now := time.Now()
	token := jwt.NewWithClaims(u.SigningMethod, &jwtClaims{
		DeviceID: u.DeviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.TokenLifetime)),
			Audience:  jwt.ClaimStrings{u.ProjectID},
		},
	})
	return token.SignedString(u.SigningKey)
}

func uploadURLErr(err error) error {
	return fmt.Errorf("failed to request upload URL: %w", err)
}

func (u *artifactUploader) requestUploadURL(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return "", uploadURLErr(err)
	}
	token, err := u.createToken()
	if err != nil {
		return "", uploadURLErr(err)
	}
	req.Header.Add("Authorization", "Bearer "+token)
	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return "", uploadURLErr(err)
	}
	defer resp.Body.Close()
	var respData struct {
		URL, Error string
	}
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		io.Copy(io.Discard, resp.Body)
		return "", uploadURLErr(err)
	}
	if resp.StatusCode != 200 {
		return "", uploadURLErr(errors.New(respData.Error))
	}
	return respData.URL, nil
}

func uploadFileErr(err error) error {
	return fmt.Errorf("failed to upload file: %w", err)
}

func (u *artifactUploader) uploadFile(ctx context.Context, url string, file io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, "PUT", url, file)
	if err != nil {
		return uploadFileErr(err)
	}
	resp, err := u.HTTPClient.Do(req)
	if err != nil {
		return uploadFileErr(err)
	}
	defer resp.Body.Close()
	msg, err := io.ReadAll(resp.Body)
	if err != nil {
		return uploadFileErr(err)
	}
	if resp.StatusCode != 200 {
		return uploadFileErr(fmt.Errorf("HTTP error: code %d, %s", resp.StatusCode, msg))
	}
	return nil
}

// UploadArtifact uploads one exported artifact file.
func (u *artifactUploader) UploadArtifact(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	uploadURL, err := u.requestUploadURL(ctx, u.BackendURL+"/generate-url")
	if err != nil {
		return err
	}
	return u.uploadFile(ctx, uploadURL, f)
}
