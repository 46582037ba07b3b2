package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"gomarketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const workers = 100

// cartload sends a burst of cart mutations to a running cart API.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "cart API address")
	amountTask := flag.Int("requests", 1000, "number of requests")
	numberOfKeys := flag.Int("products", 20, "number of distinct products")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	products := generateProducts(*numberOfKeys)

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)

	start := time.Now()
	for i := 0; i < *amountTask; i++ {
		g.Go(func() error {
			product := products[i%len(products)]
			var err error
			switch i % 4 {
			case 0, 1:
				err = post(ctx, client, *addr+"/cart/items", product)
			case 2:
				err = post(ctx, client, *addr+"/cart/items/"+product.ID+"/increment", nil)
			default:
				err = post(ctx, client, *addr+"/cart/items/"+product.ID+"/decrement", nil)
			}
			if err != nil {
				failed.Add(1)
				logrus.WithError(err).WithField("product_id", product.ID).Warn("request failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	logrus.WithFields(logrus.Fields{
		"requests": *amountTask,
		"failed":   failed.Load(),
		"duration": time.Since(start).String(),
	}).Info("load finished")
}

func generateProducts(n int) []domain.Candidate {
	products := make([]domain.Candidate, n)
	for i := range products {
		products[i] = domain.CreateTestProduct(i + 1)
		products[i].ID = uuid.NewString()
	}
	return products
}

func post(ctx context.Context, client *http.Client, url string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
