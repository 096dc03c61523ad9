package model_test

import (
	"fmt"

	"github.com/ezoic/housing/core/model"
)

// ExampleStateManager demonstrates fitted-state tracking
func ExampleStateManager() {
	state := model.NewStateManager()
	fmt.Printf("Initially fitted: %t\n", state.IsFitted())
	fmt.Println(state.RequireFitted("SimpleImputer", "Transform") != nil)

	state.SetFitted()
	state.SetDimensions(8, 16512)
	nFeatures, nSamples := state.GetDimensions()
	fmt.Printf("After SetFitted: %t (%d features, %d samples)\n", state.IsFitted(), nFeatures, nSamples)

	state.Reset()
	fmt.Printf("After Reset: %t\n", state.IsFitted())

	// Output: Initially fitted: false
	// true
	// After SetFitted: true (8 features, 16512 samples)
	// After Reset: false
}

// ExampleParams shows typed access to a hyperparameter combination
func ExampleParams() {
	p := model.Params{"n_estimators": 30, "max_features": 6, "bootstrap": false}

	fmt.Println(p.Int("n_estimators", 100), p.Int("max_depth", -1), p.Bool("bootstrap", true))

	// Output: 30 -1 false
}
