// Package ensemble drives an ESSE run: it grows an ensemble of perturbed
// forecasts, folds them into a covariance matrix, decomposes the matrix and
// stops on convergence, deadline or size cap.
//
// A Coordinator owns the run state and the stop predicate. A Strategy
// decides how members are produced: Serial rebuilds the ensemble from
// scratch at every size, Concurrent grows one shared matrix from a worker
// pool.
package ensemble
