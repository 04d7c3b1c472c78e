// Package control provides feedback laws implementing the sim.Controller
// interface: the CCM contraction law backed by an LMI certificate, and the
// open-loop None controller.
package control
