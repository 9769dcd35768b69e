package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// BlobUploader is the part of the azblob client the sink needs
type BlobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureArtifactSink uploads artifacts as block blobs
type AzureArtifactSink struct {
	client    BlobUploader
	container string
	prefix    string
}

// NewAzureArtifactSink connects with a shared key credential
func NewAzureArtifactSink(accountName, accountKey, container, prefix string) (*AzureArtifactSink, error) {
	if accountName == "" || accountKey == "" || container == "" {
		return nil, fmt.Errorf("azure sink needs account name, account key and container")
	}
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}
	return NewAzureArtifactSinkWithClient(client, container, prefix), nil
}

// NewAzureArtifactSinkWithClient wraps an existing uploader
func NewAzureArtifactSinkWithClient(client BlobUploader, container, prefix string) *AzureArtifactSink {
	return &AzureArtifactSink{client: client, container: container, prefix: prefix}
}

// Name returns the sink name
func (s *AzureArtifactSink) Name() string {
	return "azure"
}

// Publish uploads the artifact with its MIME type as the blob content type
func (s *AzureArtifactSink) Publish(ctx context.Context, artifact models.Artifact) (string, error) {
	name := objectName(s.prefix, artifact)
	contentType := artifact.MIMEType
	format := string(artifact.Format)

	_, err := s.client.UploadBuffer(ctx, s.container, name, artifact.Content, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    map[string]*string{"format": &format},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return s.container + "/" + name, nil
}
