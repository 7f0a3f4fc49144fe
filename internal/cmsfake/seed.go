package cmsfake

// Seed, yerel geliştirme için örnek kategori ve ürünleri yükler.
func (s *Server) Seed() {
	tees := s.AddCategory("T-Shirts", "t-shirts")
	hoodies := s.AddCategory("Hoodies", "hoodies")
	caps := s.AddCategory("Caps", "caps")

	s.AddProduct(ProductSeed{
		Name: "Classic Black Tee", Slug: "classic-black-tee", Price: 350, OldPrice: 420, Quantity: 40,
		Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"black"}, CategoryID: tees,
		Description: "Heavyweight cotton tee.", ImageURL: "/uploads/classic-black-tee.jpg",
	})
	s.AddProduct(ProductSeed{
		Name: "Oversized White Tee", Slug: "oversized-white-tee", Price: 380, Quantity: 25,
		Sizes: []string{"M", "L", "XL"}, Colors: []string{"white", "cream"}, CategoryID: tees,
		Description: "Drop shoulder oversized fit.",
	})
	s.AddProduct(ProductSeed{
		Name: "Fleece Hoodie", Slug: "fleece-hoodie", Price: 450, Quantity: 15,
		Sizes: []string{"M", "L"}, Colors: []string{"grey", "navy"}, CategoryID: hoodies,
		Description: "Brushed fleece hoodie with kangaroo pocket.", ImageURL: "/uploads/fleece-hoodie.jpg",
	})
	s.AddProduct(ProductSeed{
		Name: "Logo Cap", Slug: "logo-cap", Price: 200, Quantity: 60,
		Sizes: []string{"One Size"}, CategoryID: caps,
		Description: "Adjustable six panel cap.",
	})
}
