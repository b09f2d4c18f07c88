// rsge serves and exercises the rs.ge waybill and invoice integration.
package main

func main() {
	Execute()
}
