package response

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/range-feed-service/internal/paging"
)

const (
	HeaderRange        = "Range"
	HeaderContentRange = "Content-Range"
	HeaderAcceptRanges = "Accept-Ranges"
)

// ParseRange reads a single-range header of the form "<unit>=<from>-<to>",
// "<unit>=<from>-" or "<unit>=-<n>". An empty header yields nil. A header
// with neither bound ("items=-") parses to a RangeSpec without bounds so the
// paginator can reject it with its own message.
func ParseRange(header string) (*paging.RangeSpec, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	unit, set, ok := strings.Cut(header, "=")
	unit = strings.TrimSpace(unit)
	if !ok || unit == "" {
		return nil, fmt.Errorf("%w: malformed header %q", paging.ErrInvalidRange, header)
	}
	if strings.Contains(set, ",") {
		return nil, fmt.Errorf("%w: multiple ranges are not supported", paging.ErrInvalidRange)
	}
	first, last, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return nil, fmt.Errorf("%w: malformed range %q", paging.ErrInvalidRange, set)
	}

	spec := &paging.RangeSpec{Unit: unit}
	var err error
	if spec.From, err = parseBound(first); err != nil {
		return nil, err
	}
	if spec.To, err = parseBound(last); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseBound(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("%w: bound %q is not a non-negative integer", paging.ErrInvalidRange, s)
	}
	return &v, nil
}

// FormatContentRange renders "<unit> <from>-<to>/<total>", with "*" for an
// unknown total. It returns "" when the range carries no slice.
func FormatContentRange(cr paging.ContentRange) string {
	if !cr.Advertised() || !cr.HasSlice() {
		return ""
	}
	total := "*"
	if cr.Total != nil {
		total = strconv.FormatInt(*cr.Total, 10)
	}
	return fmt.Sprintf("%s %d-%d/%s", cr.Unit, *cr.From, *cr.To, total)
}

// WritePage writes a paginator response: the items as a JSON array on 200 and
// 206, an ErrorPayload otherwise. Range headers are set before the body.
func WritePage[T any](c *gin.Context, resp paging.Response[T]) {
	if resp.Range.Advertised() {
		c.Header(HeaderAcceptRanges, resp.Range.Unit)
	}
	if v := FormatContentRange(resp.Range); v != "" {
		c.Header(HeaderContentRange, v)
	}

	code := resp.Status.HTTPCode()
	switch resp.Status {
	case paging.StatusOK, paging.StatusPartialContent:
		c.JSON(code, resp.Items)
	default:
		c.AbortWithStatusJSON(code, ErrorPayload{Error: resp.Status.String(), Message: resp.Message})
	}
}
