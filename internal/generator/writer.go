package generator

import (
	"context"
	"fmt"

	"github.com/vanshika/docstore/internal/service"
)

// WriteDataset persists the dataset through the record repository and
// returns the assigned client ids in generation order.
func WriteDataset(ctx context.Context, repo service.RecordRepository, dataset Dataset) ([]int64, error) {
	ids := make([]int64, 0, len(dataset.Clients))

	for _, seed := range dataset.Clients {
		clientID, err := repo.CreateClient(ctx, seed.Client)
		if err != nil {
			return ids, fmt.Errorf("create client %s %s: %w", seed.Client.FirstName, seed.Client.LastName, err)
		}
		ids = append(ids, clientID)

		for _, ret := range seed.Returns {
			ret.ClientID = clientID
			if _, err := repo.CreateTaxReturn(ctx, ret); err != nil {
				return ids, fmt.Errorf("create tax return (client %d, year %d): %w", clientID, ret.TaxYear, err)
			}
		}
	}

	return ids, nil
}
