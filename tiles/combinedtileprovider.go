package tiles

import (
	"context"
	"fmt"
	"image"
)

// FallbackImage marks a placeholder tile that must not be cached as the
// real thing.
type FallbackImage struct {
	image.Image
}

type CombinedTileProvider struct {
	primary  TileProvider
	fallback TileProvider
}

func NewCombinedTileProvider(primary, fallback TileProvider) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
	}
}

func (p *CombinedTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	img, err := p.primary.GetTile(ctx, tile)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallbackImg, fbErr := p.fallback.GetTile(ctx, tile)
	if fbErr != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %v, %w", err, fbErr)
	}
	return FallbackImage{fallbackImg}, nil
}
