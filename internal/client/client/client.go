package client

import (
	"context"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
)

// Client is the backend contract. Every network call of the application
// goes through it.
type Client interface {
	Signup(ctx context.Context, in models.Signup) (*models.AuthResponse, error)
	Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error)
	Verify(ctx context.Context, token string) error
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context)

	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.Profile, error)

	UploadDocument(ctx context.Context, f FileUpload, onProgress ProgressFunc) (*models.UploadResponse, error)
	DownloadDocument(ctx context.Context, id string) (*models.Download, error)
	DeleteDocument(ctx context.Context, id string) (*models.Profile, error)

	ListJobs(ctx context.Context) ([]models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	CreateJob(ctx context.Context, in models.Job) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, in models.Job) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// TokenStore is the local storage the client reads the bearer token from
// and writes it to. metadata.SessionStorage implements it.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearSession(ctx context.Context) error
}

// FileUpload is a document to be sent as multipart form data.
type FileUpload struct {
	Name    string
	Content []byte
	DocType models.DocumentType
}
