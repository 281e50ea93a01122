// Package edge provides builders for navigation relationships between
// entities.
//
//	// Product has one Brand, joined on Product.BrandId = Brand.Id
//	edge.One("Brand", "Brand").Field("BrandId")
//
//	// Order has many OrderDetail rows, joined on Order.Id = OrderDetail.OrderId
//	edge.Many("Details", "OrderDetail").Ref("OrderId")
//
//	// explicit key pairs for composite keys
//	edge.Many("Lines", "Line").On("TenantId", "TenantId").On("Id", "OrderId")
//
package edge
