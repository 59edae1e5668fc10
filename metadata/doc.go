// Package metadata renders decoded field metadata as a compact JSON document
// with a fixed schema:
//
//	{"info":{"discipline":D,"packing_type":P},
//	 "sections":{
//	   "identification":{"len":N,"data":[...]},
//	   "product_definition":{"template_num":T,"len":N,"data":[...]},
//	   "data_representation":{"template_num":T,"len":N,"data":[...]},
//	   "grid_definition":{"template_num":T,"len":N,"data":[...]}},
//	 "grid":{"num_points":N,"nx":X,"ny":Y,
//	         "lat_first":F,"lon_first":F,"lat_last":F,"lon_last":F}}
//
// Output carries no whitespace. Integers are base 10, coordinates use six
// decimals. The key set and order never change between fields.
//
// Text is produced into a bounded Buffer. What happens when the document does
// not fit depends on the Serializer Policy.
package metadata
