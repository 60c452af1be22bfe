package listingctl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newProbeCommand(opts *options) *cobra.Command {
	var (
		filters  []string
		page     int
		pageSize int
		refresh  bool
	)
	cmd := &cobra.Command{
		Use:   "probe <entity>",
		Short: "List one page and report pagination and view state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseFilters(filters)
			if err != nil {
				return err
			}
			if page > 0 {
				q.Set("page", strconv.Itoa(page))
			}
			if pageSize > 0 {
				q.Set("page_size", strconv.Itoa(pageSize))
			}
			return execute(cmd, opts, "probe", func(ctx context.Context) ([]string, error) {
				token, err := opts.accessToken()
				if err != nil {
					return nil, err
				}
				return probe(ctx, newAPIClient(opts.baseURL, token, opts.viewID), args[0], q, refresh)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as key=value, repeatable")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "also issue a refresh for the view after listing")
	return cmd
}

func probe(ctx context.Context, c *apiClient, entity string, q url.Values, refresh bool) ([]string, error) {
	status, res, err := c.list(ctx, entity, q)
	if err != nil {
		return nil, err
	}
	details := describe("list", status, res)
	if status >= 400 {
		return details, fmt.Errorf("list %s returned %d", entity, status)
	}
	if refresh {
		status, res, err = c.refresh(ctx, entity)
		if err != nil {
			return details, err
		}
		details = append(details, describe("refresh", status, res)...)
		if status >= 400 {
			return details, fmt.Errorf("refresh %s returned %d", entity, status)
		}
	}
	return details, nil
}

func describe(step string, status int, res listingResponse) []string {
	if res.Error != nil {
		return []string{fmt.Sprintf("%s status=%d error=%s message=%q", step, status, res.Error.Code, res.Error.Message)}
	}
	p, s := res.Data.Pagination, res.Data.State
	return []string{
		fmt.Sprintf("%s status=%d items=%d mode=%s", step, status, len(res.Data.Items), s.Mode),
		fmt.Sprintf("%s page=%d/%d page_size=%d total=%d", step, p.Page, p.TotalPages, p.PageSize, p.Total),
		fmt.Sprintf("%s stale=%t loading=%t fetching=%t superseded=%t error=%t", step, s.IsStale, s.IsLoading, s.IsFetching, s.Superseded, s.Error),
	}
}
