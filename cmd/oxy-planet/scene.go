package main

import (
	"github.com/Carmen-Shannon/oxy-planet/config"
	"github.com/Carmen-Shannon/oxy-planet/engine/coords"
	"github.com/Carmen-Shannon/oxy-planet/engine/ecs"
	"github.com/Carmen-Shannon/oxy-planet/engine/input"
	"github.com/Carmen-Shannon/oxy-planet/engine/planet"
	"github.com/Carmen-Shannon/oxy-planet/engine/scene"
	"github.com/golang/geo/r3"
)

const (
	earthRadius        int64 = 6_371_000_000_000
	earthTerrainFactor       = 0.0001
)

// demoScene builds the singleton entity (viewer, parameters, input) and one Earth-sized planet at the origin.
// The viewer starts altitude millimeters above the north pole, looking along +y.
func demoScene(params config.Parameters, altitude int64, windowSize [2]int) *ecs.Store {
	store := ecs.NewStore()

	singletons := store.Create()
	store.SetViewer(singletons, scene.NewState(
		scene.WithWindowSize(windowSize[0], windowSize[1]),
		scene.WithPosition(coords.New(coords.Int3{}, coords.Int3{0, 0, earthRadius + altitude})),
		scene.WithLook(r3.Vector{Y: 1}),
		scene.WithUp(r3.Vector{Z: 1}),
	))
	store.SetParameters(singletons, params)
	store.SetInput(singletons, input.NewState())

	earth := store.Create()
	store.SetPlanet(earth, planet.NewState(earthRadius,
		planet.WithLabel("Earth"),
		planet.WithTerrainFactor(earthTerrainFactor),
	))
	return store
}
