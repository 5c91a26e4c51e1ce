// Command handhud runs the hand-tracking HUD daemon and its maintenance
// commands.
package main
