package searcher

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// addDirichletNoise mixes Dir(alpha) noise into the priors of n's children:
// P = (1-epsilon)*P + epsilon*eta.
func addDirichletNoise(n *node, alpha, epsilon float64, rng *rand.Rand) {
	if n.isLeaf() || n.noised {
		return
	}
	n.noised = true
	if len(n.children) == 1 {
		return
	}

	alphas := make([]float64, len(n.children))
	for i := range alphas {
		alphas[i] = alpha
	}
	eta := distmv.NewDirichlet(alphas, rng).Rand(nil)
	for i, child := range n.children {
		child.prior = (1-epsilon)*child.prior + epsilon*eta[i]
	}
}
