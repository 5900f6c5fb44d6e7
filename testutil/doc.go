// Package testutil holds fakes and an in-memory engine stack for tests.
//
//	s := testutil.NewStack(t)
//	n, _ := s.Engine.Execute(ctx, id)
//	s.Drain(t) // runs queued tasks inline
package testutil
