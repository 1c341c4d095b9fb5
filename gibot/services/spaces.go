package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// SpacesService stores and serves card artwork from a DigitalOcean Spaces
// bucket. Images are keyed by rank and card id so renames never orphan a file.
type SpacesService struct {
	client   *s3.Client
	bucket   string
	region   string
	CardRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, cardRoot string) *SpacesService {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		panic(fmt.Sprintf("Unable to load Spaces config: %v", err))
	}

	client := s3.NewFromConfig(cfg)

	return &SpacesService{
		client:   client,
		bucket:   bucket,
		region:   region,
		CardRoot: strings.TrimPrefix(cardRoot, "/"),
	}
}

// cardKey builds the object key for a card's artwork.
func (s *SpacesService) cardKey(card *models.Card) string {
	return fmt.Sprintf("%s/%s/%d_%s.jpg", s.CardRoot, strings.ToLower(card.Rank), card.ID, slugify(card.Name))
}

// CardImageURL returns the public URL for a card's artwork. The URL is built
// without a round trip, so it may point at a missing object for cards whose
// art has not been uploaded yet.
func (s *SpacesService) CardImageURL(card *models.Card) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, s.cardKey(card))
}

// UploadCardImage stores artwork for a card, overwriting any previous image.
func (s *SpacesService) UploadCardImage(ctx context.Context, card *models.Card, imageData []byte) (string, error) {
	key := s.cardKey(card)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(imageData),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000"),
		ACL:          types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image for card %d: %w", card.ID, err)
	}
	return s.CardImageURL(card), nil
}

// VerifyCardImage reports whether artwork exists for the card.
func (s *SpacesService) VerifyCardImage(ctx context.Context, card *models.Card) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.cardKey(card)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteCardImage removes a card's artwork. Deleting a missing object is not
// an error on Spaces, so this is safe to call for cards without art.
func (s *SpacesService) DeleteCardImage(ctx context.Context, card *models.Card) error {
	key := s.cardKey(card)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", key, err)
	}
	return nil
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}

// slugify lowercases a card name and replaces anything outside [a-z0-9] with
// underscores, collapsing runs.
func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
