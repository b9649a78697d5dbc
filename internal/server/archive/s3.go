// Package archive uploads final election results to S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/voternet/internal/server/config"
	"github.com/dmitrijs2005/voternet/internal/server/models"
)

// ObjectStore is the subset of the S3 API the archiver needs.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner issues temporary download links.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Archiver writes results documents as JSON under results/<election id>.json.
type S3Archiver struct {
	store     ObjectStore
	presigner Presigner
	bucket    string
	linkTTL   time.Duration
}

func NewS3Archiver(store ObjectStore, presigner Presigner, bucket string) *S3Archiver {
	return &S3Archiver{store: store, presigner: presigner, bucket: bucket, linkTTL: 15 * time.Minute}
}

// NewS3ArchiverFromConfig builds a client for the configured endpoint using
// static credentials (MinIO-style root user and password).
func NewS3ArchiverFromConfig(ctx context.Context, cfg *sc.Config) (*S3Archiver, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return NewS3Archiver(client, s3.NewPresignClient(client), cfg.S3Bucket), nil
}

// Key returns the object key for an election's results.
func Key(electionID string) string {
	return fmt.Sprintf("results/%s.json", electionID)
}

type resultRow struct {
	CandidateID      string  `json:"candidateId"`
	CandidateName    string  `json:"candidateName"`
	PartyAffiliation string  `json:"partyAffiliation"`
	Votes            int64   `json:"voteCount"`
	Percentage       float64 `json:"percentage"`
}

type document struct {
	ElectionID      string      `json:"electionId"`
	Title           string      `json:"title"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"`
	TotalValidVotes int64       `json:"totalVotes"`
	Candidates      []resultRow `json:"candidates"`
	ArchivedAt      time.Time   `json:"archivedAt"`
}

// Archive uploads r and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, r *models.ElectionResults) (string, error) {
	doc := document{
		ElectionID:      r.Election.ID,
		Title:           r.Election.Title,
		StartDate:       r.Election.StartDate,
		EndDate:         r.Election.EndDate,
		TotalValidVotes: r.TotalValidVotes,
		Candidates:      make([]resultRow, 0, len(r.Results)),
		ArchivedAt:      time.Now().UTC(),
	}
	for _, c := range r.Results {
		doc.Candidates = append(doc.Candidates, resultRow{
			CandidateID:      c.CandidateID,
			CandidateName:    c.CandidateName,
			PartyAffiliation: string(c.PartyAffiliation),
			Votes:            c.Votes,
			Percentage:       c.Percentage,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	key := Key(r.Election.ID)
	_, err = a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

// DownloadURL returns a presigned GET link for the archived results.
func (a *S3Archiver) DownloadURL(ctx context.Context, electionID string) (string, error) {
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(Key(electionID)),
	}, s3.WithPresignExpires(a.linkTTL))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}
