package app

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/presenter/internal/config"
	"github.com/vkngwrapper/presenter/internal/mesh"
	"github.com/vkngwrapper/presenter/present/vkng"
	"golang.org/x/sync/errgroup"
)

type assets struct {
	vertexShader   []byte
	fragmentShader []byte
	mesh           *mesh.Mesh
}

// loadAssets reads the shaders and the mesh in parallel.
func loadAssets(ctx context.Context, cfg config.AssetsConfig) (*assets, error) {
	g, ctx := errgroup.WithContext(ctx)
	a := &assets{}

	g.Go(func() error {
		data, err := os.ReadFile(cfg.VertexShader)
		if err != nil {
			return errors.Wrap(err, "read vertex shader")
		}
		a.vertexShader = data
		return nil
	})

	g.Go(func() error {
		data, err := os.ReadFile(cfg.FragmentShader)
		if err != nil {
			return errors.Wrap(err, "read fragment shader")
		}
		a.fragmentShader = data
		return nil
	})

	g.Go(func() error {
		if cfg.Mesh == "" {
			a.mesh = mesh.Triangle()
			return nil
		}

		m, err := mesh.Load(cfg.Mesh, cfg.Material)
		if err != nil {
			return err
		}
		a.mesh = m
		return ctx.Err()
	})

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func vertexAttributes() []vkng.VertexAttribute {
	attributes := make([]vkng.VertexAttribute, 0, len(mesh.Layout))
	for _, attr := range mesh.Layout {
		attributes = append(attributes, vkng.VertexAttribute{
			Location:   attr.Location,
			Components: attr.Components,
			Offset:     attr.Offset,
		})
	}
	return attributes
}
