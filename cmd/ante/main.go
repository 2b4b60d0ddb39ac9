// Command ante runs the ANTE back-office content service and its cache tooling.
package main

func main() {
	Execute()
}
