// Command trayforge generates, checks and scripts cable-tray parts.
package main

func main() {
	Execute()
}
