package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/playback-gate/internal/domain"
)

// AdvertisementRepo reads pre-roll candidates.
type AdvertisementRepo struct {
	client    API
	tableName string
}

func NewAdvertisementRepo(client API, tableName string) *AdvertisementRepo {
	return &AdvertisementRepo{client: client, tableName: tableName}
}

// ListEnabled scans every page of enabled advertisements.
func (r *AdvertisementRepo) ListEnabled(ctx context.Context) ([]domain.Advertisement, error) {
	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#e = :t"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	}
	var ads []domain.Advertisement
	p := dynamodb.NewScanPaginator(r.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan advertisements: %w", err)
		}
		var page []domain.Advertisement
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		ads = append(ads, page...)
	}
	return ads, nil
}
