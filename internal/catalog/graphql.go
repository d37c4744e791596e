package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"agegate/internal/platform/upstream"
)

const storefrontAPI = "bigcommerce-storefront"

const categoryProductsQuery = `query RestrictedProducts($categoryId: Int!, $first: Int!, $after: String) {
  site {
    category(entityId: $categoryId) {
      products(first: $first, after: $after) {
        pageInfo { hasNextPage endCursor }
        edges {
          node {
            sku
            variants(first: 250) { edges { node { sku } } }
          }
        }
      }
    }
  }
}`

// productSKUs is one product's base SKU and its variant SKUs as returned by
// the storefront API, before normalization.
type productSKUs struct {
	BaseSKU     string
	VariantSKUs []string
}

type page struct {
	Products    []productSKUs
	HasNextPage bool
	EndCursor   string
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Site struct {
			Category *struct {
				Products struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Edges []struct {
						Node struct {
							SKU      string `json:"sku"`
							Variants struct {
								Edges []struct {
									Node struct {
										SKU string `json:"sku"`
									} `json:"node"`
								} `json:"edges"`
							} `json:"variants"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"products"`
			} `json:"category"`
		} `json:"site"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphQLClient fetches one page of the restricted category.
type graphQLClient struct {
	httpClient *http.Client
	endpoint   string
	categoryID int
	pageSize   int
}

func (g *graphQLClient) fetchPage(ctx context.Context, token, cursor string) (*page, error) {
	vars := map[string]any{
		"categoryId": g.categoryID,
		"first":      g.pageSize,
	}
	if cursor != "" {
		vars["after"] = cursor
	}
	payload, err := json.Marshal(graphQLRequest{Query: categoryProductsQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, upstream.FromTransport(storefrontAPI, err)
	}
	body, err := upstream.ReadBody(resp)
	if err != nil {
		return nil, upstream.FromTransport(storefrontAPI, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstream.FromStatus(storefrontAPI, resp.StatusCode, body)
	}

	var out graphQLResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, upstream.New(upstream.CategoryBadData, storefrontAPI, "decode graphql response", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, upstream.New(upstream.CategoryBadData, storefrontAPI, "graphql errors: "+strings.Join(msgs, "; "), nil)
	}
	category := out.Data.Site.Category
	if category == nil {
		return nil, upstream.New(upstream.CategoryNotFound, storefrontAPI, fmt.Sprintf("category %d not found", g.categoryID), nil)
	}

	p := &page{
		HasNextPage: category.Products.PageInfo.HasNextPage,
		EndCursor:   category.Products.PageInfo.EndCursor,
	}
	for _, edge := range category.Products.Edges {
		product := productSKUs{BaseSKU: edge.Node.SKU}
		for _, v := range edge.Node.Variants.Edges {
			product.VariantSKUs = append(product.VariantSKUs, v.Node.SKU)
		}
		p.Products = append(p.Products, product)
	}
	if p.HasNextPage && p.EndCursor == "" {
		return nil, upstream.New(upstream.CategoryBadData, storefrontAPI, "hasNextPage without endCursor", nil)
	}
	return p, nil
}
