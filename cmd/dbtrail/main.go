// dbtrail - dbt Cloud run metadata forwarder.
// Receive. Correlate. Forward.
package main

func main() {
	Execute()
}
