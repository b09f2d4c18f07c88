package rsge

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrTinMissing is returned by LookupTin for an empty TIN.
var ErrTinMissing = errors.New("rs.ge taxpayer id is missing")

// LookupTin resolves a taxpayer's registered name and VAT status. The two
// remote lookups are public, run concurrently, and the first failure is
// returned. An unregistered TIN yields an empty name.
func (c *Client) LookupTin(ctx context.Context, tin string) (TinLookupResult, error) {
	tin = strings.TrimSpace(tin)
	if tin == "" {
		return TinLookupResult{}, ErrTinMissing
	}

	var (
		name     string
		vatPayer bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.invoke(gctx, methodNameFromTin, tinRequest{Tin: tin})
		if err != nil {
			return err
		}
		name = res.Text()
		return nil
	})
	g.Go(func() error {
		res, err := c.invoke(gctx, methodIsVATPayer, tinRequest{Tin: tin})
		if err != nil {
			return err
		}
		vatPayer = DecodeBool(res.Text())
		return nil
	})
	if err := g.Wait(); err != nil {
		return TinLookupResult{}, err
	}

	return TinLookupResult{Tin: tin, Name: name, IsVATPayer: vatPayer}, nil
}

// DecodeBool decodes rs.ge's boolean encoding: only the exact string
// "true" is true.
func DecodeBool(s string) bool {
	return s == "true"
}
